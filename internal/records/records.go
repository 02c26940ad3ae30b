// Package records defines the persistent record types shared by the
// importer, the identity resolution operations, and the performance
// calculation: games, players, events, time controls, playing modes,
// and saved calculation rules.
package records

import (
	"fmt"
	"strings"
)

// PGN tag names used for game selection and player identification.
const (
	TagEvent       = "Event"
	TagSite        = "Site"
	TagDate        = "Date"
	TagRound       = "Round"
	TagWhite       = "White"
	TagBlack       = "Black"
	TagResult      = "Result"
	TagEventDate   = "EventDate"
	TagSection     = "Section"
	TagStage       = "Stage"
	TagWhiteTeam   = "WhiteTeam"
	TagBlackTeam   = "BlackTeam"
	TagWhiteFideID = "WhiteFideId"
	TagBlackFideID = "BlackFideId"
	TagTimeControl = "TimeControl"
	TagMode        = "Mode"
)

// Results accepted for import. Unfinished and unknown results are
// reported and skipped.
const (
	ResultWhiteWin = "1-0"
	ResultDraw     = "1/2-1/2"
	ResultBlackWin = "0-1"
)

// IsDecisiveOrDrawn reports whether result is one of the three results
// a game must have to take part in a performance calculation.
func IsDecisiveOrDrawn(result string) bool {
	switch result {
	case ResultWhiteWin, ResultDraw, ResultBlackWin:
		return true
	}
	return false
}

// keySep separates components of encoded composite keys. Tag values
// never contain it: it is rejected by the PGN tag scanner.
const keySep = "\x1f"

// GameRef identifies a game by its source PGN file base name and the
// game's number within that file, counting from 1.
type GameRef struct {
	File   string `json:"file"`
	Number int    `json:"number"`
}

func (r GameRef) String() string {
	return fmt.Sprintf("%s#%d", r.File, r.Number)
}

// Game holds the tag pairs of one imported game plus its source
// reference. Tag values are stored exactly as they appear in the PGN
// file: inconsistent values are the problem this application exists to
// resolve, not parse errors.
type Game struct {
	Ref  GameRef           `json:"ref"`
	Tags map[string]string `json:"tags"`
}

// Tag returns the value of the named tag, or "" if absent.
func (g *Game) Tag(name string) string {
	return g.Tags[name]
}

// Result returns the game's Result tag value.
func (g *Game) Result() string { return g.Tags[TagResult] }

// Date returns the game's Date tag value.
func (g *Game) Date() string { return g.Tags[TagDate] }

// WhiteKey returns the player key for the white pieces.
func (g *Game) WhiteKey() PlayerKey {
	return PlayerKey{
		Name:      g.Tags[TagWhite],
		Event:     g.Tags[TagEvent],
		EventDate: g.Tags[TagEventDate],
		Section:   g.Tags[TagSection],
		Stage:     g.Tags[TagStage],
		Team:      g.Tags[TagWhiteTeam],
		FideID:    g.Tags[TagWhiteFideID],
	}
}

// BlackKey returns the player key for the black pieces.
func (g *Game) BlackKey() PlayerKey {
	return PlayerKey{
		Name:      g.Tags[TagBlack],
		Event:     g.Tags[TagEvent],
		EventDate: g.Tags[TagEventDate],
		Section:   g.Tags[TagSection],
		Stage:     g.Tags[TagStage],
		Team:      g.Tags[TagBlackTeam],
		FideID:    g.Tags[TagBlackFideID],
	}
}

// EventKey returns the event key for the game.
func (g *Game) EventKey() EventKey {
	return EventKey{
		Event:     g.Tags[TagEvent],
		EventDate: g.Tags[TagEventDate],
		Section:   g.Tags[TagSection],
		Stage:     g.Tags[TagStage],
	}
}

// PlayerKey is the composite of tag values which distinguishes player
// records. Two records with different keys are assumed to be different
// players until an identification says otherwise.
type PlayerKey struct {
	Name      string `json:"name"`
	Event     string `json:"event"`
	EventDate string `json:"event_date"`
	Section   string `json:"section"`
	Stage     string `json:"stage"`
	Team      string `json:"team"`
	FideID    string `json:"fide_id"`
}

// Encode returns a stable single-string form of the key for use as an
// index value.
func (k PlayerKey) Encode() string {
	return strings.Join([]string{
		k.Name, k.Event, k.EventDate, k.Section, k.Stage, k.Team, k.FideID,
	}, keySep)
}

// DecodePlayerKey reverses PlayerKey.Encode.
func DecodePlayerKey(s string) (PlayerKey, error) {
	parts := strings.Split(s, keySep)
	if len(parts) != 7 {
		return PlayerKey{}, fmt.Errorf("decode player key: %d components", len(parts))
	}
	return PlayerKey{
		Name:      parts[0],
		Event:     parts[1],
		EventDate: parts[2],
		Section:   parts[3],
		Stage:     parts[4],
		Team:      parts[5],
		FideID:    parts[6],
	}, nil
}

func (k PlayerKey) String() string {
	parts := []string{k.Name}
	for _, p := range []string{k.Event, k.EventDate, k.Section, k.Stage, k.Team, k.FideID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// EventKey is the composite of tag values which distinguishes event
// records.
type EventKey struct {
	Event     string `json:"event"`
	EventDate string `json:"event_date"`
	Section   string `json:"section"`
	Stage     string `json:"stage"`
}

// Encode returns a stable single-string form of the key.
func (k EventKey) Encode() string {
	return strings.Join([]string{k.Event, k.EventDate, k.Section, k.Stage}, keySep)
}

// DecodeEventKey reverses EventKey.Encode.
func DecodeEventKey(s string) (EventKey, error) {
	parts := strings.Split(s, keySep)
	if len(parts) != 4 {
		return EventKey{}, fmt.Errorf("decode event key: %d components", len(parts))
	}
	return EventKey{
		Event:     parts[0],
		EventDate: parts[1],
		Section:   parts[2],
		Stage:     parts[3],
	}, nil
}

func (k EventKey) String() string {
	parts := []string{k.Event}
	for _, p := range []string{k.EventDate, k.Section, k.Stage} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Player is one record per distinct player key seen in imported games.
//
// Identity is the code allocated when the record was first seen. Alias
// is the identity of the person this record has been identified as.
// A record with Alias == Identity and Known set is the primary record
// of a person; with Known clear it is a new player awaiting
// identification.
type Player struct {
	Key      PlayerKey `json:"key"`
	Identity string    `json:"identity"`
	Alias    string    `json:"alias"`
	Known    bool      `json:"known"`
}

// IsPrimary reports whether the record is the identified person record
// its aliases point at.
func (p *Player) IsPrimary() bool {
	return p.Known && p.Alias == p.Identity
}

// ItemKind distinguishes the three record types which share the
// identity and alias scheme of players but are keyed on a single
// encoded value.
type ItemKind string

const (
	KindEvent       ItemKind = "event"
	KindTimeControl ItemKind = "time"
	KindMode        ItemKind = "mode"
)

// Item is an event, time control, or playing mode record.
type Item struct {
	Kind     ItemKind `json:"kind"`
	Key      string   `json:"key"`
	Identity string   `json:"identity"`
	Alias    string   `json:"alias"`
	Known    bool     `json:"known"`
}

// IsPrimary reports whether the record is the identified record its
// aliases point at.
func (i *Item) IsPrimary() bool {
	return i.Known && i.Alias == i.Identity
}

// IdentityKind names the counters used to allocate identity codes.
type IdentityKind string

const (
	IdentityPlayer      IdentityKind = "player"
	IdentityEvent       IdentityKind = "event"
	IdentityTimeControl IdentityKind = "time"
	IdentityMode        IdentityKind = "mode"
)

// IdentityKindFor maps an item kind to its identity counter.
func IdentityKindFor(kind ItemKind) IdentityKind {
	switch kind {
	case KindEvent:
		return IdentityEvent
	case KindTimeControl:
		return IdentityTimeControl
	case KindMode:
		return IdentityMode
	}
	return ""
}

// Selector is a saved calculation rule. Player and Events are
// mutually exclusive: a rule names either a person whose population is
// deduced from their opponents, or a list of events whose games bound
// the population.
type Selector struct {
	Name        string   `json:"name"`
	Player      string   `json:"player,omitempty"`
	Events      []string `json:"events,omitempty"`
	FromDate    string   `json:"from_date,omitempty"`
	ToDate      string   `json:"to_date,omitempty"`
	TimeControl string   `json:"time_control,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	// Initials fixes the performance of the named player identities
	// for the whole calculation.
	Initials map[string]float64 `json:"initials,omitempty"`
}
