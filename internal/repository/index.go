package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/model"
)

// MaxIndexEntries — сколько последних каналов хранит индекс салона.
const MaxIndexEntries = 80

// ConversationIndexRepository — денормализованный список активных каналов салона,
// файл index_shop_<id>.json. Без блокировок: потерянное обновление индекса допустимо,
// источник истины — журналы каналов.
type ConversationIndexRepository struct {
	dir   string
	limit int
}

func NewConversationIndexRepository(dir string) *ConversationIndexRepository {
	return &ConversationIndexRepository{dir: dir, limit: MaxIndexEntries}
}

func (r *ConversationIndexRepository) path(shopID int64) string {
	return filepath.Join(r.dir, "index_shop_"+strconv.FormatInt(shopID, 10)+".json")
}

// Upsert обновляет строку канала (или добавляет новую), сортирует по last_timestamp
// по убыванию и обрезает до MaxIndexEntries.
func (r *ConversationIndexRepository) Upsert(ctx context.Context, shopID int64, e model.ConversationEntry) error {
	defer logger.DeferLogDuration("index.Upsert", time.Now())()
	path := r.path(shopID)
	list, err := r.read(path)
	if err != nil {
		return fmt.Errorf("indexRepo.Upsert: %w", err)
	}

	found := false
	for i := range list {
		if list[i].Channel == e.Channel {
			list[i] = e
			found = true
			break
		}
	}
	if !found {
		list = append(list, e)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastTimestamp > list[j].LastTimestamp
	})
	if len(list) > r.limit {
		list = list[:r.limit]
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("indexRepo.Upsert encode: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("indexRepo.Upsert: %w", err)
	}
	return nil
}

// List возвращает индекс салона, самые свежие каналы первыми. Нет файла — пустой список.
func (r *ConversationIndexRepository) List(ctx context.Context, shopID int64) ([]model.ConversationEntry, error) {
	defer logger.DeferLogDuration("index.List", time.Now())()
	list, err := r.read(r.path(shopID))
	if err != nil {
		return nil, fmt.Errorf("indexRepo.List: %w", err)
	}
	return list, nil
}

func (r *ConversationIndexRepository) read(path string) ([]model.ConversationEntry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.ConversationEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []model.ConversationEntry
	if len(data) > 0 {
		if err := json.Unmarshal(data, &list); err != nil {
			logger.Errorf("indexRepo decode %s: %v (rebuilding)", path, err)
			list = nil
		}
	}
	if list == nil {
		list = []model.ConversationEntry{}
	}
	return list, nil
}
