package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/RogerMarsh/chesscalc/internal/records"
)

// Key layout. Record keys map to JSON values; index keys map to the
// encoded key of the record they point at. The NUL separator cannot
// occur in tag values or file base names.
const (
	bkGame     = "g:"     // g:<file>\x00<number> -> game JSON
	bkGameIdx  = "gi:"    // gi:<field>:<value>\x00<file>\x00<number> -> ref JSON
	bkPlayer   = "p:"     // p:<player key> -> player JSON
	bkPlayerID = "pi:id:" // pi:id:<identity> -> player key
	bkPlayerAl = "pi:al:" // pi:al:<alias>\x00<player key> -> player key
	bkItem     = "i:"     // i:<kind>:<item key> -> item JSON
	bkItemID   = "ii:id:" // ii:id:<kind>:<identity> -> item key
	bkItemAl   = "ii:al:" // ii:al:<kind>:<alias>\x00<item key> -> item key
	bkSelector = "s:"     // s:<name> -> selector JSON
	bkIdentity = "id:"    // id:<kind> -> last allocated code
)

const bkSep = "\x00"

// Game index field names within bkGameIdx.
const (
	bfDate        = "d"
	bfTimeControl = "tc"
	bfMode        = "md"
	bfEvent       = "ev"
	bfPlayer      = "pl"
)

// BadgerStore implements Store over BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens the Badger backend with its data in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func gameKey(file string, number int) []byte {
	return []byte(bkGame + file + bkSep + fmt.Sprintf("%08d", number))
}

func gameIndexKey(field, value string, ref records.GameRef) []byte {
	return []byte(bkGameIdx + field + ":" + value + bkSep + ref.File + bkSep + fmt.Sprintf("%08d", ref.Number))
}

// gameIndexEntries returns the index keys derived from a game's tags.
func gameIndexEntries(g *records.Game) [][]byte {
	var keys [][]byte
	if date := g.Date(); date != "" {
		keys = append(keys, gameIndexKey(bfDate, date, g.Ref))
	}
	if tc := g.Tag(records.TagTimeControl); tc != "" {
		keys = append(keys, gameIndexKey(bfTimeControl, tc, g.Ref))
	}
	if mode := g.Tag(records.TagMode); mode != "" {
		keys = append(keys, gameIndexKey(bfMode, mode, g.Ref))
	}
	keys = append(keys, gameIndexKey(bfEvent, g.EventKey().Encode(), g.Ref))
	keys = append(keys, gameIndexKey(bfPlayer, g.WhiteKey().Encode(), g.Ref))
	black := gameIndexKey(bfPlayer, g.BlackKey().Encode(), g.Ref)
	if !bytes.Equal(black, keys[len(keys)-1]) {
		keys = append(keys, black)
	}
	return keys
}

// PutGame stores a game and its index entries, replacing any previous
// version of the same file and number.
func (s *BadgerStore) PutGame(g *records.Game) error {
	if err := validateGame(g); err != nil {
		return err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	refData, err := json.Marshal(g.Ref)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := gameKey(g.Ref.File, g.Ref.Number)
		var old records.Game
		err := getJSON(txn, key, &old)
		if err == nil {
			for _, idx := range gameIndexEntries(&old) {
				if err := txn.Delete(idx); err != nil {
					return err
				}
			}
		} else if err != ErrNotFound {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		for _, idx := range gameIndexEntries(g) {
			if err := txn.Set(idx, refData); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasGame reports whether a game from file with the given number is on
// the database.
func (s *BadgerStore) HasGame(file string, number int) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(gameKey(file, number))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// GameCountForFile returns the number of stored games imported from
// file.
func (s *BadgerStore) GameCountForFile(file string) (int, error) {
	count := 0
	prefix := []byte(bkGame + file + bkSep)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, false, func(key, val []byte) error {
			count++
			return nil
		})
	})
	return count, err
}

// AllGames returns every stored game.
func (s *BadgerStore) AllGames() ([]*records.Game, error) {
	var games []*records.Game
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(bkGame), true, func(key, val []byte) error {
			var g records.Game
			if err := json.Unmarshal(val, &g); err != nil {
				return err
			}
			games = append(games, &g)
			return nil
		})
	})
	return games, err
}

// GamesByDateRange returns games dated within [from, to]. Empty bounds
// select all games.
func (s *BadgerStore) GamesByDateRange(from, to string) ([]*records.Game, error) {
	if from == "" && to == "" {
		return s.AllGames()
	}
	var refs []records.GameRef
	prefix := []byte(bkGameIdx + bfDate + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, true, func(key, val []byte) error {
			rest := key[len(prefix):]
			sep := bytes.IndexByte(rest, 0)
			if sep < 0 {
				return fmt.Errorf("malformed date index key %q", key)
			}
			date := string(rest[:sep])
			if date < from || date > to {
				return nil
			}
			var ref records.GameRef
			if err := json.Unmarshal(val, &ref); err != nil {
				return err
			}
			refs = append(refs, ref)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.gamesByRefs(refs)
}

// GamesByPlayerKey returns games in which the player key holds either
// color.
func (s *BadgerStore) GamesByPlayerKey(key records.PlayerKey) ([]*records.Game, error) {
	return s.gamesByIndex(bfPlayer, key.Encode())
}

// GamesByEventKey returns the games of one event record.
func (s *BadgerStore) GamesByEventKey(key records.EventKey) ([]*records.Game, error) {
	return s.gamesByIndex(bfEvent, key.Encode())
}

// GamesByTag selects games on the TimeControl or Mode tag.
func (s *BadgerStore) GamesByTag(name, value string) ([]*records.Game, error) {
	switch name {
	case records.TagTimeControl:
		return s.gamesByIndex(bfTimeControl, value)
	case records.TagMode:
		return s.gamesByIndex(bfMode, value)
	}
	return nil, fmt.Errorf("tag %q is not indexed", name)
}

func (s *BadgerStore) gamesByIndex(field, value string) ([]*records.Game, error) {
	var refs []records.GameRef
	prefix := []byte(bkGameIdx + field + ":" + value + bkSep)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, true, func(key, val []byte) error {
			var ref records.GameRef
			if err := json.Unmarshal(val, &ref); err != nil {
				return err
			}
			refs = append(refs, ref)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.gamesByRefs(refs)
}

func (s *BadgerStore) gamesByRefs(refs []records.GameRef) ([]*records.Game, error) {
	games := make([]*records.Game, 0, len(refs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, ref := range refs {
			var g records.Game
			if err := getJSON(txn, gameKey(ref.File, ref.Number), &g); err != nil {
				return fmt.Errorf("game %s: %w", ref, err)
			}
			games = append(games, &g)
		}
		return nil
	})
	return games, err
}

// PutPlayer stores a player record, maintaining the identity and alias
// indexes.
func (s *BadgerStore) PutPlayer(p *records.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	keyEnc := p.Key.Encode()

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(bkPlayer + keyEnc)
		var old records.Player
		err := getJSON(txn, key, &old)
		if err == nil && old.Alias != p.Alias {
			if err := txn.Delete([]byte(bkPlayerAl + old.Alias + bkSep + keyEnc)); err != nil {
				return err
			}
		} else if err != nil && err != ErrNotFound {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set([]byte(bkPlayerID+p.Identity), []byte(keyEnc)); err != nil {
			return err
		}
		return txn.Set([]byte(bkPlayerAl+p.Alias+bkSep+keyEnc), []byte(keyEnc))
	})
}

// PlayerByKey returns the player record with the given key.
func (s *BadgerStore) PlayerByKey(key records.PlayerKey) (*records.Player, error) {
	var p records.Player
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(bkPlayer+key.Encode()), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PlayerByIdentity returns the player record allocated the given
// identity code.
func (s *BadgerStore) PlayerByIdentity(identity string) (*records.Player, error) {
	var p records.Player
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(bkPlayerID + identity))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return getJSON(txn, append([]byte(bkPlayer), val...), &p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Players lists player records filtered on identification state,
// sorted by key.
func (s *BadgerStore) Players(known bool) ([]*records.Player, error) {
	var players []*records.Player
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(bkPlayer), true, func(key, val []byte) error {
			var p records.Player
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			if p.Known == known {
				players = append(players, &p)
			}
			return nil
		})
	})
	return players, err
}

// PlayerAliases lists records whose alias is identity.
func (s *BadgerStore) PlayerAliases(identity string) ([]*records.Player, error) {
	var players []*records.Player
	prefix := []byte(bkPlayerAl + identity + bkSep)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, true, func(key, val []byte) error {
			var p records.Player
			if err := getJSON(txn, append([]byte(bkPlayer), val...), &p); err != nil {
				return err
			}
			players = append(players, &p)
			return nil
		})
	})
	return players, err
}

// PutItem stores an event, time control, or mode record, maintaining
// the identity and alias indexes.
func (s *BadgerStore) PutItem(it *records.Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	kind := string(it.Kind)

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(bkItem + kind + ":" + it.Key)
		var old records.Item
		err := getJSON(txn, key, &old)
		if err == nil && old.Alias != it.Alias {
			if err := txn.Delete([]byte(bkItemAl + kind + ":" + old.Alias + bkSep + it.Key)); err != nil {
				return err
			}
		} else if err != nil && err != ErrNotFound {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set([]byte(bkItemID+kind+":"+it.Identity), []byte(it.Key)); err != nil {
			return err
		}
		return txn.Set([]byte(bkItemAl+kind+":"+it.Alias+bkSep+it.Key), []byte(it.Key))
	})
}

// ItemByKey returns the item record with the given key.
func (s *BadgerStore) ItemByKey(kind records.ItemKind, key string) (*records.Item, error) {
	var it records.Item
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(bkItem+string(kind)+":"+key), &it)
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ItemByIdentity returns the item record allocated the given identity
// code.
func (s *BadgerStore) ItemByIdentity(kind records.ItemKind, identity string) (*records.Item, error) {
	var it records.Item
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(bkItemID + string(kind) + ":" + identity))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return getJSON(txn, []byte(bkItem+string(kind)+":"+string(val)), &it)
		})
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Items lists item records of a kind filtered on identification state,
// sorted by key.
func (s *BadgerStore) Items(kind records.ItemKind, known bool) ([]*records.Item, error) {
	var items []*records.Item
	prefix := []byte(bkItem + string(kind) + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, true, func(key, val []byte) error {
			var it records.Item
			if err := json.Unmarshal(val, &it); err != nil {
				return err
			}
			if it.Known == known {
				items = append(items, &it)
			}
			return nil
		})
	})
	return items, err
}

// ItemAliases lists item records whose alias is identity.
func (s *BadgerStore) ItemAliases(kind records.ItemKind, identity string) ([]*records.Item, error) {
	var items []*records.Item
	prefix := []byte(bkItemAl + string(kind) + ":" + identity + bkSep)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, true, func(key, val []byte) error {
			var it records.Item
			if err := getJSON(txn, []byte(bkItem+string(kind)+":"+string(val)), &it); err != nil {
				return err
			}
			items = append(items, &it)
			return nil
		})
	})
	return items, err
}

// PutSelector stores a calculation rule under its name.
func (s *BadgerStore) PutSelector(sel *records.Selector) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(bkSelector+sel.Name), data)
	})
}

// SelectorByName returns the named calculation rule.
func (s *BadgerStore) SelectorByName(name string) (*records.Selector, error) {
	var sel records.Selector
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(bkSelector+name), &sel)
	})
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// Selectors lists all calculation rules sorted by name.
func (s *BadgerStore) Selectors() ([]*records.Selector, error) {
	var sels []*records.Selector
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(bkSelector), true, func(key, val []byte) error {
			var sel records.Selector
			if err := json.Unmarshal(val, &sel); err != nil {
				return err
			}
			sels = append(sels, &sel)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sels, func(i, j int) bool { return sels[i].Name < sels[j].Name })
	return sels, nil
}

// DeleteSelector removes the named calculation rule.
func (s *BadgerStore) DeleteSelector(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(bkSelector + name))
	})
}

// NextIdentity allocates the next identity code of a kind.
func (s *BadgerStore) NextIdentity(kind records.IdentityKind) (string, error) {
	var code int64
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(bkIdentity + string(kind))
		item, err := txn.Get(key)
		if err == nil {
			err = item.Value(func(val []byte) error {
				code, err = strconv.ParseInt(string(val), 10, 64)
				return err
			})
			if err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		code++
		return txn.Set(key, []byte(strconv.FormatInt(code, 10)))
	})
	if err != nil {
		return "", fmt.Errorf("allocate %s identity: %w", kind, err)
	}
	return strconv.FormatInt(code, 10), nil
}

// getJSON unmarshals the value at key into v, mapping a missing key to
// ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// scanPrefix visits every key with the prefix in key order. Values are
// fetched only when withValues is set.
func scanPrefix(txn *badger.Txn, prefix []byte, withValues bool, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = withValues
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if !withValues {
			if err := fn(key, nil); err != nil {
				return err
			}
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	return nil
}
