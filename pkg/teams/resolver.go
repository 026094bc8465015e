// Package teams resolves the team names that arrive on news feeds and
// odds boards ("Kansas City Chiefs", "KC", "Chiefs") to canonical team
// ids.
package teams

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Entry is one registered team with its lookup keys.
type Entry struct {
	Team         model.Team
	Abbreviation string
	Aliases      []string
}

// Resolver indexes teams by normalized name, abbreviation, and alias.
type Resolver struct {
	mu       sync.RWMutex
	byID     map[string]Entry
	byName   map[string]string // normalized name -> team id
	byAbbrev map[string]string
	byLeague map[model.League][]string
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		byID:     make(map[string]Entry),
		byName:   make(map[string]string),
		byAbbrev: make(map[string]string),
		byLeague: make(map[model.League][]string),
	}
}

// Register adds a team and all of its lookup keys. Later registrations
// win on key collisions.
func (r *Resolver) Register(e Entry) error {
	if e.Team.ID == "" {
		return model.Validationf("team.id", "must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[e.Team.ID]; !exists {
		r.byLeague[e.Team.League] = append(r.byLeague[e.Team.League], e.Team.ID)
	}
	r.byID[e.Team.ID] = e
	r.byName[Normalize(e.Team.Name)] = e.Team.ID
	if e.Abbreviation != "" {
		r.byAbbrev[strings.ToLower(e.Abbreviation)] = e.Team.ID
	}
	for _, alias := range e.Aliases {
		r.byName[Normalize(alias)] = e.Team.ID
	}
	return nil
}

// Get returns a registered team by id.
func (r *Resolver) Get(id string) (model.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e.Team, ok
}

// League returns every team id registered under a league.
func (r *Resolver) League(league model.League) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.byLeague[league]))
	copy(out, r.byLeague[league])
	return out
}

// Resolve maps a free-form team reference to a team id. It tries the
// abbreviation index, then the normalized name and alias index, then a
// containment match for partial names like "Chiefs".
func (r *Resolver) Resolve(ref string) (model.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.byAbbrev[strings.ToLower(strings.TrimSpace(ref))]; ok {
		return r.byID[id].Team, true
	}

	normed := Normalize(ref)
	if normed == "" {
		return model.Team{}, false
	}
	if id, ok := r.byName[normed]; ok {
		return r.byID[id].Team, true
	}

	for key, id := range r.byName {
		if strings.Contains(key, normed) || strings.Contains(normed, key) {
			return r.byID[id].Team, true
		}
	}
	return model.Team{}, false
}

// ResolveMatchup splits a matchup reference such as "BUF @ KC",
// "Bills at Chiefs", or "KC vs BUF" and resolves both sides. The team
// after "@"/"at" is home; with "vs" the first team is home.
func (r *Resolver) ResolveMatchup(ref string) (home, away model.Team, ok bool) {
	type sep struct {
		token    string
		homeLast bool
	}
	seps := []sep{
		{" @ ", true}, {" at ", true},
		{" vs. ", false}, {" vs ", false}, {" v ", false},
	}

	for _, s := range seps {
		idx := strings.Index(strings.ToLower(ref), s.token)
		if idx <= 0 {
			continue
		}
		first, okFirst := r.Resolve(ref[:idx])
		second, okSecond := r.Resolve(ref[idx+len(s.token):])
		if !okFirst || !okSecond {
			continue
		}
		if s.homeLast {
			return second, first, true
		}
		return first, second, true
	}
	return model.Team{}, model.Team{}, false
}

// Normalize lowercases a name, strips diacritics, and collapses
// whitespace so "São Paulo" and "sao  paulo" index identically.
func Normalize(name string) string {
	name = strings.ToLower(name)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, name)

	return strings.Join(strings.Fields(name), " ")
}
