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
	"time"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/govisor/zkensemble/rest"
)

// LogPanel shows the output of one instance, or the ensemble events when
// its id is zero.  New records arrive through a long poll.
type LogPanel struct {
	text *views.TextArea
	info *rest.InstanceInfo
	id   int

	Panel
}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{}

	p.Panel.Init(app)

	p.SetKeys([]string{"[Q] Quit", "[H] Help"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(StyleNormal)
	p.SetContent(p.text)

	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
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
			case 'I', 'i':
				if info != nil {
					app.ShowInfo(info.ID)
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

func (p *LogPanel) SetID(id int) {
	p.SetTitle("Loading")
	p.text.SetLines(nil)
	p.info = nil
	p.id = id
}

// update must be called with AppLock held.
func (p *LogPanel) update() {

	var e1 error
	p.info = nil
	if p.id != 0 {
		p.info, e1 = p.App().GetItem(p.id)
	}
	loginfo, e2 := p.App().GetLog(p.id)

	words := []string{"[ESC] Main", "[H] Help"}

	if p.id == 0 {
		p.SetTitle("Ensemble Events")
	} else {
		p.SetTitle(fmt.Sprintf("Log for ZK-%d", p.id))
	}

	if (p.info == nil && p.id != 0) || loginfo == nil {
		e := e2
		if e == nil {
			e = e1
		}
		if e != nil {
			p.SetStatus(fmt.Sprintf("No data: %v", e))
			p.SetError()
		} else {
			p.SetStatus("Loading ...")
			p.SetNormal()
		}
		p.text.SetLines([]string{""})
		p.SetKeys(words)
		return
	}

	p.SetStatus(fmt.Sprintf("%d records", len(loginfo.Records)))
	if p.info != nil {
		p.SetFor(p.info)
	} else {
		p.SetNormal()
	}

	lines := make([]string, 0, len(loginfo.Records))
	for _, r := range loginfo.Records {
		line := fmt.Sprintf("%s %s",
			r.Time.Format(time.StampMilli), r.Text)
		lines = append(lines, line)
	}
	p.text.SetLines(lines)

	if p.info != nil {
		words = append(words, "[I] Info")
		words = instanceKeys(words, p.info)
	}
	p.SetKeys(words)
}
