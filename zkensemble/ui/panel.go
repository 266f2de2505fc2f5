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
	"sync"

	"github.com/gdamore/tcell/views"

	"github.com/govisor/zkensemble/rest"
)

// Panel is a views.Panel with our title, status, and key bars in place.
// Each screen embeds one.
type Panel struct {
	tb   *TitleBar
	sb   *StatusBar
	kb   *KeyBar
	once sync.Once
	app  *App

	views.Panel
}

func (p *Panel) SetTitle(title string) {
	p.tb.SetCenter(title)
}

func (p *Panel) SetKeys(words []string) {
	p.kb.SetKeys(words)
}

func (p *Panel) SetStatus(status string) {
	p.sb.SetText(status)
}

func (p *Panel) SetGood() {
	p.sb.SetGood()
}

func (p *Panel) SetNormal() {
	p.sb.SetNormal()
}

func (p *Panel) SetWarn() {
	p.sb.SetWarn()
}

func (p *Panel) SetError() {
	p.sb.SetError()
}

// SetFor colors the status bar after the state of an instance.
func (p *Panel) SetFor(info *rest.InstanceInfo) {
	switch {
	case info.Failed:
		p.SetError()
	case info.Running && info.Healthy:
		p.SetGood()
	case info.Running:
		p.SetWarn()
	default:
		p.SetNormal()
	}
}

func (p *Panel) Init(app *App) {
	p.once.Do(func() {
		p.app = app

		p.tb = NewTitleBar()
		p.tb.SetRight(app.GetAppName())
		p.tb.SetCenter(" ")

		p.kb = NewKeyBar()

		p.sb = NewStatusBar()

		p.Panel.SetTitle(p.tb)
		p.Panel.SetMenu(p.sb)
		p.Panel.SetStatus(p.kb)
	})
}

func (p *Panel) App() *App {
	return p.app
}

// instanceKeys returns the key hints for actions on a single instance.
func instanceKeys(words []string, info *rest.InstanceInfo) []string {
	if info.Running {
		words = append(words, "[T] Stop")
	} else {
		words = append(words, "[S] Start")
	}
	return append(words, "[R] Restart")
}

// instanceAction handles the keys listed by instanceKeys.
func instanceAction(app *App, info *rest.InstanceInfo, r rune) bool {
	if info == nil {
		return false
	}
	switch r {
	case 'S', 's':
		if !info.Running {
			app.StartInstance(info.ID)
			return true
		}
	case 'T', 't':
		if info.Running {
			app.StopInstance(info.ID)
			return true
		}
	case 'R', 'r':
		app.RestartInstance(info.ID)
		return true
	}
	return false
}
