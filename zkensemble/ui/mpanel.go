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
	"github.com/govisor/zkensemble/zkensemble/util"
)

var (
	StyleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	StyleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	StyleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	StyleError = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack)
)

func instanceStyle(info *rest.InstanceInfo) tcell.Style {
	switch {
	case info.Failed:
		return StyleError
	case info.Running && info.Healthy:
		return StyleGood
	case info.Running:
		return StyleWarn
	}
	return StyleNormal
}

// MainPanel lists the instances of the ensemble, one per line, and lets
// the user select one for further action.
type MainPanel struct {
	content  *views.CellView
	selected *rest.InstanceInfo
	nfailed  int
	nrunning int
	nstopped int
	width    int
	height   int
	curx     int
	cury     int
	lines    []string
	styles   []tcell.Style
	items    []*rest.InstanceInfo

	Panel
}

// mainModel provides the model for a CellView.
type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App, server string) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(StyleNormal)

	m.SetTitle(server)
	m.SetKeys([]string{"[Q] Quit"})

	return m
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	app := m.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyEnter:
			if m.selected != nil {
				app.ShowInfo(m.selected.ID)
				return true
			}
		case tcell.KeyRune:
			r := ev.Rune()
			switch r {
			case 'Q', 'q':
				app.Quit()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'I', 'i':
				if m.selected != nil {
					app.ShowInfo(m.selected.ID)
					return true
				}
			case 'L', 'l':
				if m.selected != nil {
					app.ShowLog(m.selected.ID)
				} else {
					app.ShowLog(0)
				}
				return true
			}
			if m.selected == nil {
				switch r {
				case 'S', 's':
					app.StartEnsemble()
					return true
				case 'T', 't':
					app.StopEnsemble()
					return true
				}
			} else if instanceAction(app, m.selected, r) {
				return true
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	var ch rune
	var style tcell.Style

	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ch, StyleNormal, nil, 1
	}

	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	} else {
		ch = ' '
	}
	style = m.styles[y]
	if m.items[y] == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// All content is ASCII.
	m := model.m
	x := 0
	for _, l := range m.lines {
		if x < len(l) {
			x = len(l)
		}
	}
	return x, len(m.lines)
}

func (model *mainModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *mainModel) MoveCursor(offx, offy int) {
	m := model.m
	m.curx += offx
	m.cury += offy
	m.updateCursor(true)
}

func (model *mainModel) SetCursor(x, y int) {
	m := model.m
	m.curx = x
	m.cury = y
	m.updateCursor(true)
}

func (m *MainPanel) unselect() {
	m.cury = 0
	m.curx = 0
	m.updateCursor(false)
}

func (m *MainPanel) updateCursor(selected bool) {
	if m.curx > m.width-1 {
		m.curx = m.width - 1
	}
	if m.cury > m.height-1 {
		m.cury = m.height - 1
	}
	if m.curx < 0 {
		m.curx = 0
	}
	if m.cury < 0 {
		m.cury = 0
	}
	if selected && m.height > 0 {
		if m.selected == nil {
			m.curx = 0
			m.cury = 0
		}
		m.selected = m.items[m.cury]
	} else {
		m.selected = nil
	}
}

// update is called to update content, e.g. in response to Draw() or
// as part of another update.  It is called with the AppLock held.
func (m *MainPanel) update() {

	ens, _ := m.App().GetEnsemble()
	items, err := m.App().GetItems()
	m.items = items

	// preserve selected item
	if sel := m.selected; sel != nil {
		m.selected = nil
		for y, item := range m.items {
			if item.ID == sel.ID {
				m.selected = item
				m.cury = y
			}
		}
	}
	if err != nil {
		if e, ok := err.(*rest.Error); ok && e.Code == 401 {
			m.App().ShowAuth()
			return
		}
		m.SetError()
		m.SetStatus(fmt.Sprintf("Cannot load instances: %v", err))
		m.lines = []string{}
		m.styles = []tcell.Style{}
		m.items = nil
		m.selected = nil
		m.height = 0
		return
	}

	lines := make([]string, 0, len(items))
	styles := make([]tcell.Style, 0, len(items))

	m.nfailed = 0
	m.nstopped = 0
	m.nrunning = 0
	m.height = 0
	m.width = 0

	for _, info := range items {
		d := time.Since(info.TimeStamp)
		d -= d % time.Second
		line := fmt.Sprintf("%-6s %-28s %-10s %9s   %s",
			info.Name, info.Hostname+":"+util.Ports(info),
			util.Status(info), util.FormatDuration(d), info.Status)

		if len(line) > m.width {
			m.width = len(line)
		}
		m.height++

		lines = append(lines, line)
		styles = append(styles, instanceStyle(info))
		switch {
		case info.Failed:
			m.nfailed++
		case info.Running:
			m.nrunning++
		default:
			m.nstopped++
		}
	}

	m.lines = lines
	m.styles = styles

	name := ""
	if ens != nil {
		name = ens.Name
	}
	m.SetStatus(fmt.Sprintf(
		"%s %4d Instances %4d Faulted %4d Running %4d Stopped",
		name, len(m.items), m.nfailed, m.nrunning, m.nstopped))

	if m.nfailed > 0 {
		m.SetError()
	} else if m.nstopped > 0 {
		m.SetWarn()
	} else if m.nrunning > 0 {
		m.SetGood()
	} else {
		m.SetNormal()
	}

	words := []string{"[Q] Quit", "[H] Help", "[L] Log"}
	if item := m.selected; item != nil {
		words = append(words, "[I] Info")
		words = instanceKeys(words, item)
	} else {
		words = append(words, "[S] Start All", "[T] Stop All")
	}
	m.SetKeys(words)
}
