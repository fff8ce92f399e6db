// Package savestore keeps named save slots in a bbolt database. Each slot
// holds the raw state block written by the engine plus CBOR-encoded
// metadata used for listing.
package savestore

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	bbolt "go.etcd.io/bbolt"
)

var log = commonlog.GetLogger("agtcore.savestore")

// Bucket names.
var (
	bucketSlots  = []byte("slots")
	bucketBlocks = []byte("blocks")
)

// ErrNoSlot is returned when a named slot does not exist.
var ErrNoSlot = errors.New("no such save slot")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("savestore: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SlotInfo describes one saved game.
type SlotInfo struct {
	ID        string    `cbor:"1,keyasint"`
	Game      string    `cbor:"2,keyasint"`
	Name      string    `cbor:"3,keyasint"`
	Signature uint16    `cbor:"4,keyasint"`
	Location  string    `cbor:"5,keyasint"`
	Turns     int       `cbor:"6,keyasint"`
	Score     int       `cbor:"7,keyasint"`
	Size      int       `cbor:"8,keyasint"`
	SavedAt   time.Time `cbor:"9,keyasint"`
}

// Store wraps a bbolt database of save slots.
type Store struct {
	bolt *bbolt.DB
	now  func() time.Time
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("savestore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSlots, bucketBlocks} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("savestore: create buckets: %w", err)
	}
	return &Store{bolt: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// slotKey scopes slot names by game so two games can share a database.
func slotKey(game, name string) []byte {
	return []byte(game + "\x00" + name)
}

// Put writes block under name, replacing any earlier save in that slot.
// info.Game and info.Name are set from the arguments; ID, Size and
// SavedAt are filled in.
func (s *Store) Put(game, name string, info SlotInfo, block []byte) (SlotInfo, error) {
	if name == "" {
		return SlotInfo{}, errors.New("savestore: empty slot name")
	}
	info.ID = uuid.NewString()
	info.Game = game
	info.Name = name
	info.Size = len(block)
	info.SavedAt = s.now().UTC()

	meta, err := cborEncMode.Marshal(&info)
	if err != nil {
		return SlotInfo{}, fmt.Errorf("savestore: encode slot %q: %w", name, err)
	}
	err = s.bolt.Update(func(tx *bbolt.Tx) error {
		slots := tx.Bucket(bucketSlots)
		blocks := tx.Bucket(bucketBlocks)
		key := slotKey(game, name)
		if old := slots.Get(key); old != nil {
			var prev SlotInfo
			if err := cbor.Unmarshal(old, &prev); err == nil {
				if err := blocks.Delete([]byte(prev.ID)); err != nil {
					return err
				}
			}
		}
		if err := blocks.Put([]byte(info.ID), block); err != nil {
			return err
		}
		return slots.Put(key, meta)
	})
	if err != nil {
		return SlotInfo{}, fmt.Errorf("savestore: write slot %q: %w", name, err)
	}
	log.Debug("slot written", "game", game, "slot", name, "bytes", len(block))
	return info, nil
}

// Get returns the metadata and block saved under name.
func (s *Store) Get(game, name string) (SlotInfo, []byte, error) {
	var info SlotInfo
	var block []byte
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketSlots).Get(slotKey(game, name))
		if meta == nil {
			return ErrNoSlot
		}
		if err := cbor.Unmarshal(meta, &info); err != nil {
			return fmt.Errorf("decode slot %q: %w", name, err)
		}
		data := tx.Bucket(bucketBlocks).Get([]byte(info.ID))
		if data == nil {
			return fmt.Errorf("slot %q has no state block", name)
		}
		// bbolt memory is only valid inside the transaction.
		block = bytes.Clone(data)
		return nil
	})
	if errors.Is(err, ErrNoSlot) {
		return SlotInfo{}, nil, fmt.Errorf("%w: %q", ErrNoSlot, name)
	}
	if err != nil {
		return SlotInfo{}, nil, fmt.Errorf("savestore: %w", err)
	}
	return info, block, nil
}

// List returns the slots of game, most recent first.
func (s *Store) List(game string) ([]SlotInfo, error) {
	var out []SlotInfo
	prefix := slotKey(game, "")
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSlots).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var info SlotInfo
			if err := cbor.Unmarshal(v, &info); err != nil {
				log.Warningf("skipping unreadable slot %q: %s", k[len(prefix):], err)
				continue
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("savestore: list: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Delete removes a slot and its block.
func (s *Store) Delete(game, name string) error {
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		slots := tx.Bucket(bucketSlots)
		key := slotKey(game, name)
		meta := slots.Get(key)
		if meta == nil {
			return ErrNoSlot
		}
		var info SlotInfo
		if err := cbor.Unmarshal(meta, &info); err == nil {
			if err := tx.Bucket(bucketBlocks).Delete([]byte(info.ID)); err != nil {
				return err
			}
		}
		return slots.Delete(key)
	})
	if errors.Is(err, ErrNoSlot) {
		return fmt.Errorf("%w: %q", ErrNoSlot, name)
	}
	if err != nil {
		return fmt.Errorf("savestore: delete slot %q: %w", name, err)
	}
	return nil
}
