// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ui

import (
	"fmt"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/govisor/zkensemble/rest"
	"github.com/govisor/zkensemble/zkensemble/util"
)

type InfoPanel struct {
	text *views.TextArea
	info *rest.InstanceInfo
	id   int
	err  error // last error retrieving state

	Panel
}

func NewInfoPanel(app *App) *InfoPanel {
	p := &InfoPanel{}
	p.Panel.Init(app)

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(StyleNormal)
	p.SetContent(p.text)
	p.SetKeys([]string{"[ESC] Main", "[H] Help"})

	return p
}

func (p *InfoPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *InfoPanel) HandleEvent(ev tcell.Event) bool {
	info := p.info
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'L', 'l':
				if info != nil {
					app.ShowLog(info.ID)
					return true
				}
			default:
				if instanceAction(app, info, ev.Rune()) {
					return true
				}
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *InfoPanel) SetID(id int) {
	p.id = id
	p.info = nil
	p.err = nil
}

// update must be called with AppLock held.
func (p *InfoPanel) update() {

	s, e := p.App().GetItem(p.id)
	p.info = s
	p.err = e
	words := []string{"[ESC] Main", "[H] Help"}

	p.SetTitle(fmt.Sprintf("Details for ZK-%d", p.id))

	if s == nil {
		if e != nil {
			p.SetStatus(fmt.Sprintf("No data: %v", e))
			p.SetError()
		} else {
			p.SetStatus("Loading...")
			p.SetNormal()
		}
		p.text.SetLines(nil)
		p.SetKeys(words)
		return
	}

	p.SetStatus(s.Reason)
	p.SetFor(s)

	lines := make([]string, 0, 12)
	lines = append(lines, fmt.Sprintf("%13s %s", "Name:", s.Name))
	lines = append(lines, fmt.Sprintf("%13s %d", "Server ID:", s.ID))
	lines = append(lines, fmt.Sprintf("%13s %s", "Hostname:", s.Hostname))
	lines = append(lines, fmt.Sprintf("%13s %d", "Client Port:", s.ClientPort))
	lines = append(lines, fmt.Sprintf("%13s %d", "Peer Port:", s.PeerPort))
	lines = append(lines, fmt.Sprintf("%13s %d", "Election:", s.ElectionPort))
	lines = append(lines, fmt.Sprintf("%13s %s", "Directory:", s.BaseDirectory))
	lines = append(lines, fmt.Sprintf("%13s %s", "Status:", util.Status(s)))
	lines = append(lines, fmt.Sprintf("%13s %v", "Since:", s.TimeStamp))
	lines = append(lines, fmt.Sprintf("%13s %s", "Detail:", s.Status))
	if s.Pid != 0 {
		lines = append(lines, fmt.Sprintf("%13s %d", "Pid:", s.Pid))
	}
	lines = append(lines, fmt.Sprintf("%13s %d started, %d failed",
		"History:", s.Starts, s.Failures))

	p.text.SetLines(lines)

	words = append(words, "[L] Log")
	p.SetKeys(instanceKeys(words, s))
}
