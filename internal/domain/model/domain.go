package model

import (
	"fmt"
	"sort"
	"strings"
)

// Domain describes one collection instance: what owners and items are called
// in documents and URLs.
type Domain struct {
	// Name is the config value selecting this domain.
	Name string
	// Title is a human readable name used by the frontend and docs.
	Title string
	// OwnerField and ItemField are the JSON field names in persisted documents.
	OwnerField string
	ItemField  string
	// OwnersPath and ItemsPath are the URL segments under /api.
	OwnersPath string
	ItemsPath  string
}

// Built-in domains.
var (
	Puzzles = Domain{
		Name:       "puzzles",
		Title:      "Puzzle Ratings",
		OwnerField: "solver",
		ItemField:  "puzzle",
		OwnersPath: "solvers",
		ItemsPath:  "puzzles",
	}
	BoardGames = Domain{
		Name:       "boardgames",
		Title:      "Board Game Ratings",
		OwnerField: "player",
		ItemField:  "game",
		OwnersPath: "players",
		ItemsPath:  "games",
	}
)

var domains = map[string]Domain{
	Puzzles.Name:    Puzzles,
	BoardGames.Name: BoardGames,
}

// LookupDomain returns the domain registered under name (case-insensitive).
func LookupDomain(name string) (Domain, error) {
	d, ok := domains[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Domain{}, fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}
	return d, nil
}

// DomainNames lists the registered domain names in sorted order.
func DomainNames() []string {
	names := make([]string, 0, len(domains))
	for n := range domains {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
