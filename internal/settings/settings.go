// Пакет settings — изменяемые на лету настройки загрузки и доступа.
//
// Хранилище process-wide, read-mostly: читается на каждом запросе,
// изменяется редко (административное действие). Snapshot() возвращает
// значение-копию — в пределах одного запроса все решения принимаются
// по одному и тому же срезу, изменения видны со следующего запроса.
package settings

import (
	"sync"

	"github.com/bigkaa/roomstore/internal/domain/access"
	"github.com/bigkaa/roomstore/internal/domain/mediatype"
)

// Snapshot — неизменяемый срез настроек на один запрос.
type Snapshot struct {
	// MediaTypeBlockList — запрещённые MIME-типы через запятую
	MediaTypeBlockList string
	// MediaTypeAllowList — разрешённые MIME-типы через запятую.
	// Непустой список переводит политику в режим allow.
	MediaTypeAllowList string
	// RestrictToMembers — файлы доступны только участникам комнаты
	RestrictToMembers bool
	// RestrictToAccessibleRoom — файлы доступны тем, кто может войти в комнату
	RestrictToAccessibleRoom bool
	// ProtectFiles — файлы закрыты для анонимного доступа
	ProtectFiles bool
	// MaxFileSize — максимальный размер файла в байтах
	MaxFileSize int64
}

// MediaTypeList возвращает конфигурацию политики типов для этого среза.
// Allow-список, если задан, имеет приоритет над block-списком.
func (s Snapshot) MediaTypeList() mediatype.ListConfig {
	if s.MediaTypeAllowList != "" {
		return mediatype.ParseList(mediatype.ModeAllow, s.MediaTypeAllowList)
	}
	return mediatype.ParseList(mediatype.ModeBlock, s.MediaTypeBlockList)
}

// Access возвращает настройки для AccessGate из этого среза.
func (s Snapshot) Access() access.Settings {
	return access.Settings{
		RestrictToMembers:        s.RestrictToMembers,
		RestrictToAccessibleRoom: s.RestrictToAccessibleRoom,
		ProtectFiles:             s.ProtectFiles,
	}
}

// Store — потокобезопасное хранилище настроек.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStore создаёт хранилище с начальными значениями.
func NewStore(initial Snapshot) *Store {
	return &Store{snap: initial}
}

// Snapshot возвращает текущий срез настроек.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}

// Update заменяет настройки целиком. Действует со следующего Snapshot().
func (st *Store) Update(snap Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap = snap
}
