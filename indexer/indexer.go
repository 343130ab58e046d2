// Package indexer maintains secondary indexes over committed rounds so
// clients can find games by player without scanning full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"cosmossdk.io/log"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/storage"
)

const (
	prefixPlayerGames = "idx:player:game:"
	keyOpenGames      = "idx:games:open"
)

// Indexer subscribes to chain events and updates secondary lookup tables.
type Indexer struct {
	mu     sync.Mutex
	db     storage.DB
	logger log.Logger
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter, logger log.Logger) *Indexer {
	idx := &Indexer{db: db, logger: logger.With("module", "indexer")}
	emitter.Subscribe(events.EventAppCreated, idx.onAppCreated)
	emitter.Subscribe(events.EventStakeRegistered, idx.onStakeRegistered)
	emitter.Subscribe(events.EventGameSettled, idx.onGameSettled)
	return idx
}

// GetGamesByPlayer returns the ids of games player created or staked in,
// oldest first.
func (idx *Indexer) GetGamesByPlayer(player string) ([]uint64, error) {
	return idx.getList(prefixPlayerGames + player)
}

// GetOpenGames returns the ids of games that have not settled.
func (idx *Indexer) GetOpenGames() ([]uint64, error) {
	return idx.getList(keyOpenGames)
}

// ---- event handlers ----

func (idx *Indexer) onAppCreated(ev events.Event) {
	creator, _ := ev.Data["creator"].(string)
	appID, _ := ev.Data["app_id"].(uint64)
	if creator == "" || appID == 0 {
		return
	}
	idx.update(prefixPlayerGames+creator, appID, true)
	idx.update(keyOpenGames, appID, true)
}

func (idx *Indexer) onStakeRegistered(ev events.Event) {
	player, _ := ev.Data["player"].(string)
	appID, _ := ev.Data["app_id"].(uint64)
	if player == "" || appID == 0 {
		return
	}
	idx.update(prefixPlayerGames+player, appID, true)
}

func (idx *Indexer) onGameSettled(ev events.Event) {
	appID, _ := ev.Data["app_id"].(uint64)
	if appID == 0 {
		return
	}
	idx.update(keyOpenGames, appID, false)
}

// ---- list helpers ----

func (idx *Indexer) update(key string, id uint64, add bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var err error
	if add {
		err = idx.addToList(key, id)
	} else {
		err = idx.removeFromList(key, id)
	}
	if err != nil {
		idx.logger.Error("index update failed", "key", key, "app", id, "err", err)
	}
}

func (idx *Indexer) getList(key string) ([]uint64, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []uint64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key string, value uint64) error {
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, value) {
		return nil
	}
	return idx.putList(key, append(ids, value))
}

func (idx *Indexer) removeFromList(key string, value uint64) error {
	ids, err := idx.getList(key)
	if err != nil {
		return err
	}
	return idx.putList(key, slices.DeleteFunc(ids, func(id uint64) bool { return id == value }))
}

func (idx *Indexer) putList(key string, ids []uint64) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
