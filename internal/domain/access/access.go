// Пакет access — решение о праве чтения загруженного файла.
//
// Реализует таблицу решений по трём настройкам (restrict to members,
// restrict to accessible room, protect files) и членству принципала
// в комнате. При одновременно включённых restrict-настройках побеждает
// более строгая: членство обязательно независимо от доступности комнаты.
//
// Решение вычисляется заново на каждое чтение: настройки и членство
// могли измениться между загрузкой и чтением. Чистая функция.
package access

import (
	"github.com/bigkaa/roomstore/internal/domain/model"
)

// Facts — факты о доступе принципала к комнате файла.
// Поставляются извне (репозиторий комнат), пакет их не интерпретирует
// сверх таблицы решений.
type Facts struct {
	// IsMember — принципал состоит в комнате
	IsMember bool
	// IsAccessible — комната доступна без членства (публичный канал)
	IsAccessible bool
}

// Settings — срез настроек доступа, снятый один раз на запрос.
type Settings struct {
	// RestrictToMembers — файлы доступны только участникам комнаты
	RestrictToMembers bool
	// RestrictToAccessibleRoom — файлы доступны тем, кто может войти в комнату
	RestrictToAccessibleRoom bool
	// ProtectFiles — файлы закрыты для анонимного доступа
	ProtectFiles bool
}

// CanRead возвращает true, если принципал вправе прочитать файл комнаты.
//
// Порядок правил:
//  1. Аноним + ProtectFiles=false → разрешено (legacy-поведение открытых файлов)
//  2. Аноним + ProtectFiles=true → запрещено
//  3. RestrictToMembers → только членам комнаты
//  4. Иначе RestrictToAccessibleRoom → членам либо при доступной комнате
//  5. Иначе → разрешено
//
// Правило 3 имеет приоритет над правилом 4 даже при обеих включённых
// настройках: выигрывает более строгая.
func CanRead(p model.Principal, facts Facts, s Settings) bool {
	if p.Anonymous() {
		return !s.ProtectFiles
	}

	if s.RestrictToMembers {
		return facts.IsMember
	}

	if s.RestrictToAccessibleRoom {
		return facts.IsMember || facts.IsAccessible
	}

	return true
}
