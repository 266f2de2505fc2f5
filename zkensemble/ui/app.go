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

// Package ui implements the full screen interface of the zkensemble
// command.  It talks to zkensembled only through a rest.Client.
package ui

import (
	"errors"
	"time"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/context"

	"github.com/govisor/zkensemble/rest"
	"github.com/govisor/zkensemble/zkensemble/util"
)

var ErrNoInstance = errors.New("Instance not found")

type App struct {
	app       *views.Application
	view      views.View
	panel     views.Widget
	auth      *AuthPanel
	info      *InfoPanel
	help      *HelpPanel
	log       *LogPanel
	main      *MainPanel
	client    *rest.Client
	logger    hclog.Logger
	err       error
	ensemble  *rest.EnsembleInfo
	items     []*rest.InstanceInfo
	logID     int
	logInfo   *rest.LogInfo
	logErr    error
	logCancel context.CancelFunc

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowInfo(id int) {
	a.info.SetID(id)
	a.show(a.info)
}

// ShowLog shows the log of instance id, or the ensemble events when id
// is zero.
func (a *App) ShowLog(id int) {
	if a.logCancel != nil {
		a.logCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	a.logInfo = nil
	a.logErr = nil
	a.logID = id
	a.logCancel = cancel
	a.log.SetID(id)
	go a.refreshLog(ctx, id)

	a.show(a.log)
}

func (a *App) ShowMain() {
	a.show(a.main)
}

func (a *App) ShowAuth() {
	if a.panel != a.auth {
		a.auth.ResetFields()
		a.show(a.auth)
	}
}

func (a *App) SetUserPassword(user, pass string) {
	a.client.SetAuth(user, pass)
	a.err = nil
}

// The actions below run in the background; their results show up through
// the refresh loop.

func (a *App) do(what string, id int, fn func() error) {
	go func() {
		if e := fn(); e != nil {
			a.logger.Error("request failed", "action", what, "id", id, "error", e)
			a.app.PostFunc(func() {
				a.main.SetStatus(what + " failed: " + e.Error())
				a.main.SetError()
				a.app.Update()
			})
		}
	}()
}

func (a *App) StartInstance(id int) {
	a.do("Start", id, func() error { return a.client.StartInstance(id) })
}

func (a *App) StopInstance(id int) {
	a.do("Stop", id, func() error { return a.client.StopInstance(id) })
}

func (a *App) RestartInstance(id int) {
	a.do("Restart", id, func() error { return a.client.RestartInstance(id) })
}

func (a *App) StartEnsemble() {
	a.do("Start", 0, a.client.StartEnsemble)
}

func (a *App) StopEnsemble() {
	a.do("Stop", 0, a.client.StopEnsemble)
}

func (a *App) Quit() {
	/* This just posts the quit event. */
	a.app.Quit()
}

func (a *App) SetLogger(logger hclog.Logger) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	a.logger = logger
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) GetClient() *rest.Client {
	return a.client
}

func (a *App) GetAppName() string {
	return "ZooKeeper Ensemble"
}

func NewApp(client *rest.Client, url string) *App {

	app := &App{}
	app.app = &views.Application{}
	app.client = client
	app.logger = hclog.NewNullLogger()
	app.auth = NewAuthPanel(app, url)
	app.info = NewInfoPanel(app)
	app.help = NewHelpPanel(app)
	app.log = NewLogPanel(app)
	app.main = NewMainPanel(app, url)
	app.panel = app.main

	return app
}

func (a *App) getItems() (*rest.EnsembleInfo, []*rest.InstanceInfo, error) {
	ens, e := a.client.Ensemble()
	if e != nil {
		return nil, nil, e
	}
	items := make([]*rest.InstanceInfo, 0, len(ens.Instances))
	for _, id := range ens.Instances {
		item, e := a.client.GetInstance(id)
		if e == nil {
			items = append(items, item)
		}
	}
	util.SortInstances(items)
	return ens, items, nil
}

// refresh keeps the app items current.  Watch returns as soon as anything
// in the ensemble changes, so the screen follows state without polling.
func (a *App) refresh() {
	client := a.client
	etag := ""
	for {
		ens, items, e := a.getItems()

		a.app.PostFunc(func() {
			a.ensemble = ens
			a.items = items
			a.err = e
			a.app.Update()
		})
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Hour)
		etag, e = client.Watch(ctx, etag)
		cancel()
		if e != nil {
			a.logger.Debug("watch failed", "error", e)
			etag = ""
			time.Sleep(2 * time.Second)
		}
	}
}

func (a *App) refreshLog(ctx context.Context, id int) {
	info, e := a.client.GetLog(id)

	for {
		a.app.PostFunc(func() {
			if a.logID == id {
				a.logInfo = info
				a.logErr = e
				a.app.Update()
			}
		})
		select {
		case <-ctx.Done():
			return
		default:
		}
		if e != nil {
			time.Sleep(2 * time.Second)
			info, e = a.client.GetLog(id)
			continue
		}
		info, e = a.client.WatchLog(ctx, id, info)
	}
}

func (a *App) GetEnsemble() (*rest.EnsembleInfo, error) {
	return a.ensemble, a.err
}

func (a *App) GetItems() ([]*rest.InstanceInfo, error) {
	return a.items, a.err
}

func (a *App) GetItem(id int) (*rest.InstanceInfo, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, i := range a.items {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, ErrNoInstance
}

func (a *App) GetLog(id int) (*rest.LogInfo, error) {
	if a.logID == id {
		return a.logInfo, a.logErr
	}
	return nil, nil
}

func (a *App) Run() {
	a.logger.Info("starting user interface")
	a.app.SetRootWidget(a)
	a.ShowMain()
	go a.refresh()
	go func() {
		// Give us periodic updates
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	if e := a.app.Run(); e != nil {
		a.logger.Error("user interface failed", "error", e)
	}
}
