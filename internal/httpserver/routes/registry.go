package routes

import (
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

// Registrar mounts one group of routes. It may skip itself when the
// dependency it serves is missing from d.
type Registrar func(r chi.Router, d deps.Deps)

var groups = map[string]Registrar{}

// Register is called from init() in each route file. Names must be unique.
func Register(name string, reg Registrar) {
	if _, dup := groups[name]; dup {
		panic("routes: duplicate group " + name)
	}
	groups[name] = reg
}

// RegisterAll mounts every group on r in name order.
func RegisterAll(r chi.Router, d deps.Deps) {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d.Logger.Debug("registering routes", logger.String("group", name))
		groups[name](r, d)
	}
}
