package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/RogerMarsh/chesscalc/internal/records"
)

const sqliteFile = "chesscalc.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game (
	file        TEXT NOT NULL,
	number      INTEGER NOT NULL,
	date        TEXT NOT NULL,
	timecontrol TEXT NOT NULL,
	mode        TEXT NOT NULL,
	eventkey    TEXT NOT NULL,
	whitekey    TEXT NOT NULL,
	blackkey    TEXT NOT NULL,
	record      TEXT NOT NULL,
	PRIMARY KEY (file, number)
);
CREATE INDEX IF NOT EXISTS game_date ON game(date);
CREATE INDEX IF NOT EXISTS game_timecontrol ON game(timecontrol);
CREATE INDEX IF NOT EXISTS game_mode ON game(mode);
CREATE INDEX IF NOT EXISTS game_eventkey ON game(eventkey);
CREATE INDEX IF NOT EXISTS game_whitekey ON game(whitekey);
CREATE INDEX IF NOT EXISTS game_blackkey ON game(blackkey);

CREATE TABLE IF NOT EXISTS player (
	key      TEXT PRIMARY KEY,
	identity TEXT NOT NULL UNIQUE,
	alias    TEXT NOT NULL,
	known    INTEGER NOT NULL,
	record   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS player_alias ON player(alias);

CREATE TABLE IF NOT EXISTS item (
	kind     TEXT NOT NULL,
	key      TEXT NOT NULL,
	identity TEXT NOT NULL,
	alias    TEXT NOT NULL,
	known    INTEGER NOT NULL,
	record   TEXT NOT NULL,
	PRIMARY KEY (kind, key)
);
CREATE INDEX IF NOT EXISTS item_identity ON item(kind, identity);
CREATE INDEX IF NOT EXISTS item_alias ON item(kind, alias);

CREATE TABLE IF NOT EXISTS selector (
	name   TEXT PRIMARY KEY,
	record TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS identity (
	kind TEXT PRIMARY KEY,
	code INTEGER NOT NULL
);
`

// SQLiteStore implements Store over a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite backend with its database file in dir,
// creating the schema when absent.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", filepath.Join(dir, sqliteFile))
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// The sqlite driver serializes access through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutGame stores a game, replacing any previous version of the same
// file and number.
func (s *SQLiteStore) PutGame(g *records.Game) error {
	if err := validateGame(g); err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO game (file, number, date, timecontrol, mode, eventkey, whitekey, blackkey, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file, number) DO UPDATE SET
			date = excluded.date,
			timecontrol = excluded.timecontrol,
			mode = excluded.mode,
			eventkey = excluded.eventkey,
			whitekey = excluded.whitekey,
			blackkey = excluded.blackkey,
			record = excluded.record`,
		g.Ref.File, g.Ref.Number,
		g.Date(), g.Tag(records.TagTimeControl), g.Tag(records.TagMode),
		g.EventKey().Encode(), g.WhiteKey().Encode(), g.BlackKey().Encode(),
		string(data),
	)
	return err
}

// HasGame reports whether a game from file with the given number is on
// the database.
func (s *SQLiteStore) HasGame(file string, number int) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM game WHERE file = ? AND number = ?`, file, number,
	).Scan(&n)
	return n > 0, err
}

// GameCountForFile returns the number of stored games imported from
// file.
func (s *SQLiteStore) GameCountForFile(file string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM game WHERE file = ?`, file).Scan(&n)
	return n, err
}

// AllGames returns every stored game.
func (s *SQLiteStore) AllGames() ([]*records.Game, error) {
	return s.queryGames(`SELECT record FROM game ORDER BY file, number`)
}

// GamesByDateRange returns games dated within [from, to]. Empty bounds
// select all games.
func (s *SQLiteStore) GamesByDateRange(from, to string) ([]*records.Game, error) {
	if from == "" && to == "" {
		return s.AllGames()
	}
	return s.queryGames(
		`SELECT record FROM game WHERE date != '' AND date >= ? AND date <= ? ORDER BY file, number`,
		from, to,
	)
}

// GamesByPlayerKey returns games in which the player key holds either
// color.
func (s *SQLiteStore) GamesByPlayerKey(key records.PlayerKey) ([]*records.Game, error) {
	enc := key.Encode()
	return s.queryGames(
		`SELECT record FROM game WHERE whitekey = ? OR blackkey = ? ORDER BY file, number`,
		enc, enc,
	)
}

// GamesByEventKey returns the games of one event record.
func (s *SQLiteStore) GamesByEventKey(key records.EventKey) ([]*records.Game, error) {
	return s.queryGames(
		`SELECT record FROM game WHERE eventkey = ? ORDER BY file, number`,
		key.Encode(),
	)
}

// GamesByTag selects games on the TimeControl or Mode tag.
func (s *SQLiteStore) GamesByTag(name, value string) ([]*records.Game, error) {
	switch name {
	case records.TagTimeControl:
		return s.queryGames(
			`SELECT record FROM game WHERE timecontrol = ? ORDER BY file, number`, value)
	case records.TagMode:
		return s.queryGames(
			`SELECT record FROM game WHERE mode = ? ORDER BY file, number`, value)
	}
	return nil, fmt.Errorf("tag %q is not indexed", name)
}

func (s *SQLiteStore) queryGames(query string, args ...any) ([]*records.Game, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var games []*records.Game
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var g records.Game
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, err
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}

// PutPlayer stores a player record.
func (s *SQLiteStore) PutPlayer(p *records.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO player (key, identity, alias, known, record)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			identity = excluded.identity,
			alias = excluded.alias,
			known = excluded.known,
			record = excluded.record`,
		p.Key.Encode(), p.Identity, p.Alias, boolInt(p.Known), string(data),
	)
	return err
}

// PlayerByKey returns the player record with the given key.
func (s *SQLiteStore) PlayerByKey(key records.PlayerKey) (*records.Player, error) {
	return s.queryPlayer(`SELECT record FROM player WHERE key = ?`, key.Encode())
}

// PlayerByIdentity returns the player record allocated the given
// identity code.
func (s *SQLiteStore) PlayerByIdentity(identity string) (*records.Player, error) {
	return s.queryPlayer(`SELECT record FROM player WHERE identity = ?`, identity)
}

func (s *SQLiteStore) queryPlayer(query string, args ...any) (*records.Player, error) {
	var data string
	err := s.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p records.Player
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Players lists player records filtered on identification state,
// sorted by key.
func (s *SQLiteStore) Players(known bool) ([]*records.Player, error) {
	return s.queryPlayers(
		`SELECT record FROM player WHERE known = ? ORDER BY key`, boolInt(known))
}

// PlayerAliases lists records whose alias is identity.
func (s *SQLiteStore) PlayerAliases(identity string) ([]*records.Player, error) {
	return s.queryPlayers(
		`SELECT record FROM player WHERE alias = ? ORDER BY key`, identity)
}

func (s *SQLiteStore) queryPlayers(query string, args ...any) ([]*records.Player, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var players []*records.Player
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p records.Player
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, err
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}

// PutItem stores an event, time control, or mode record.
func (s *SQLiteStore) PutItem(it *records.Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO item (kind, key, identity, alias, known, record)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET
			identity = excluded.identity,
			alias = excluded.alias,
			known = excluded.known,
			record = excluded.record`,
		string(it.Kind), it.Key, it.Identity, it.Alias, boolInt(it.Known), string(data),
	)
	return err
}

// ItemByKey returns the item record with the given key.
func (s *SQLiteStore) ItemByKey(kind records.ItemKind, key string) (*records.Item, error) {
	return s.queryItem(
		`SELECT record FROM item WHERE kind = ? AND key = ?`, string(kind), key)
}

// ItemByIdentity returns the item record allocated the given identity
// code.
func (s *SQLiteStore) ItemByIdentity(kind records.ItemKind, identity string) (*records.Item, error) {
	return s.queryItem(
		`SELECT record FROM item WHERE kind = ? AND identity = ?`, string(kind), identity)
}

func (s *SQLiteStore) queryItem(query string, args ...any) (*records.Item, error) {
	var data string
	err := s.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var it records.Item
	if err := json.Unmarshal([]byte(data), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Items lists item records of a kind filtered on identification state,
// sorted by key.
func (s *SQLiteStore) Items(kind records.ItemKind, known bool) ([]*records.Item, error) {
	return s.queryItems(
		`SELECT record FROM item WHERE kind = ? AND known = ? ORDER BY key`,
		string(kind), boolInt(known))
}

// ItemAliases lists item records whose alias is identity.
func (s *SQLiteStore) ItemAliases(kind records.ItemKind, identity string) ([]*records.Item, error) {
	return s.queryItems(
		`SELECT record FROM item WHERE kind = ? AND alias = ? ORDER BY key`,
		string(kind), identity)
}

func (s *SQLiteStore) queryItems(query string, args ...any) ([]*records.Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*records.Item
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var it records.Item
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// PutSelector stores a calculation rule under its name.
func (s *SQLiteStore) PutSelector(sel *records.Selector) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO selector (name, record) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET record = excluded.record`,
		sel.Name, string(data),
	)
	return err
}

// SelectorByName returns the named calculation rule.
func (s *SQLiteStore) SelectorByName(name string) (*records.Selector, error) {
	var data string
	err := s.db.QueryRow(`SELECT record FROM selector WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sel records.Selector
	if err := json.Unmarshal([]byte(data), &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

// Selectors lists all calculation rules sorted by name.
func (s *SQLiteStore) Selectors() ([]*records.Selector, error) {
	rows, err := s.db.Query(`SELECT record FROM selector ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sels []*records.Selector
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sel records.Selector
		if err := json.Unmarshal([]byte(data), &sel); err != nil {
			return nil, err
		}
		sels = append(sels, &sel)
	}
	return sels, rows.Err()
}

// DeleteSelector removes the named calculation rule.
func (s *SQLiteStore) DeleteSelector(name string) error {
	_, err := s.db.Exec(`DELETE FROM selector WHERE name = ?`, name)
	return err
}

// NextIdentity allocates the next identity code of a kind.
func (s *SQLiteStore) NextIdentity(kind records.IdentityKind) (string, error) {
	var code int64
	err := s.db.QueryRow(`
		INSERT INTO identity (kind, code) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET code = code + 1
		RETURNING code`,
		string(kind),
	).Scan(&code)
	if err != nil {
		return "", fmt.Errorf("allocate %s identity: %w", kind, err)
	}
	return fmt.Sprintf("%d", code), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
