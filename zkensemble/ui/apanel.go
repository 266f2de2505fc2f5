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
	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"
)

// AuthPanel prompts for the credentials zkensembled asks for.  It is shown
// whenever a request is refused with 401.
type AuthPanel struct {
	hlayout    *views.BoxLayout
	left       *views.BoxLayout
	right      *views.BoxLayout
	uprompt    *views.Text
	pprompt    *views.Text
	ufield     *views.Text
	pfield     *views.Text
	passactive bool
	username   []rune
	password   []rune

	Panel
}

const (
	authFieldWidth = 16
	authMaxInput   = 256
)

var (
	styleFocus = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
)

func NewAuthPanel(app *App, server string) *AuthPanel {
	p := &AuthPanel{}
	p.Panel.Init(app)

	p.username = make([]rune, 0, 128)
	p.password = make([]rune, 0, 128)

	p.hlayout = views.NewBoxLayout(views.Horizontal)
	p.left = views.NewBoxLayout(views.Vertical)
	p.right = views.NewBoxLayout(views.Vertical)
	p.uprompt = views.NewText()
	p.pprompt = views.NewText()
	p.ufield = views.NewText()
	p.pfield = views.NewText()
	p.uprompt.SetText("Username: ")
	p.pprompt.SetText("Password: ")

	for _, w := range []*views.Text{p.uprompt, p.pprompt, p.ufield, p.pfield} {
		w.SetStyle(StyleNormal)
	}
	for _, l := range []*views.BoxLayout{p.hlayout, p.left, p.right} {
		l.SetStyle(StyleNormal)
	}

	p.left.AddWidget(views.NewSpacer(), 1.0)
	p.left.AddWidget(p.uprompt, 0.0)
	p.left.AddWidget(p.pprompt, 0.0)
	p.left.AddWidget(views.NewSpacer(), 1.0)

	p.right.AddWidget(views.NewSpacer(), 1.0)
	p.right.AddWidget(p.ufield, 0.0)
	p.right.AddWidget(p.pfield, 0.0)
	p.right.AddWidget(views.NewSpacer(), 1.0)

	p.hlayout.AddWidget(views.NewSpacer(), 1.0)
	p.hlayout.AddWidget(p.left, 0.0)
	p.hlayout.AddWidget(p.right, 0.0)
	p.hlayout.AddWidget(views.NewSpacer(), 1.0)

	p.SetTitle(server)
	p.SetStatus("Authentication Required")
	p.SetKeys([]string{"[ESC] Quit", "[TAB] Next", "[ENTER] Login"})
	p.SetContent(p.hlayout)
	p.update()

	return p
}

func (p *AuthPanel) ResetFields() {
	p.passactive = false
	p.username = p.username[:0]
	p.password = p.password[:0]
}

func (p *AuthPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

// field returns the input being edited.
func (p *AuthPanel) field() *[]rune {
	if p.passactive {
		return &p.password
	}
	return &p.username
}

func (p *AuthPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		f := p.field()
		switch ev.Key() {
		case tcell.KeyEsc:
			p.App().Quit()
		case tcell.KeyTab, tcell.KeyEnter:
			if p.passactive {
				p.App().SetUserPassword(string(p.username),
					string(p.password))
				p.App().ShowMain()
			} else {
				p.passactive = true
			}
		case tcell.KeyBacktab:
			p.passactive = false
		case tcell.KeyCtrlU, tcell.KeyCtrlW:
			*f = (*f)[:0]
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(*f) > 0 {
				*f = (*f)[:len(*f)-1]
			}
		case tcell.KeyRune:
			if len(*f) < authMaxInput {
				*f = append(*f, ev.Rune())
			}
		default:
			return false
		}
		return true
	}
	return p.Panel.HandleEvent(ev)
}

// fitField pads or trims an input for display, marking the cursor when
// the field is active.
func fitField(text []rune, active bool) string {
	s := append([]rune{}, text...)
	if active {
		s = append(s, '_')
	}
	if len(s) > authFieldWidth {
		s = s[len(s)-authFieldWidth:]
		s[0] = '<'
	}
	for len(s) < authFieldWidth {
		s = append(s, ' ')
	}
	return string(s)
}

// update must be called with AppLock held.
func (p *AuthPanel) update() {

	p.Panel.SetError()

	masked := make([]rune, len(p.password))
	for i := range masked {
		masked[i] = '*'
	}
	p.ufield.SetText(fitField(p.username, !p.passactive))
	p.pfield.SetText(fitField(masked, p.passactive))

	if p.passactive {
		p.pfield.SetStyle(styleFocus)
		p.ufield.SetStyle(StyleNormal)
	} else {
		p.ufield.SetStyle(styleFocus)
		p.pfield.SetStyle(StyleNormal)
	}
}
