// Package chat описывает грамматику идентификаторов каналов, роли участников и коды ошибок чата.
package chat

import (
	"regexp"
	"strconv"

	"github.com/barbershop/internal/model"
)

// Формы идентификатора канала:
//
//	pre_<shopId|all>_<hex6-40>   — вопрос до записи (салон или общий)
//	bk_<appointmentId>_<hex6-40> — переписка по записи
//	bk_<hex6-40>                 — старый формат записи без id
var (
	preRe      = regexp.MustCompile(`^pre_([0-9]+|all)_[A-Fa-f0-9]{6,40}$`)
	bookingRe  = regexp.MustCompile(`^bk_([0-9]+)_[A-Fa-f0-9]{6,40}$`)
	legacyBkRe = regexp.MustCompile(`^bk_[A-Fa-f0-9]{6,40}$`)
)

// Channel — разобранный идентификатор канала.
type Channel struct {
	Raw  string
	Kind model.ChannelKind

	shopID   int64
	hasShop  bool
	apptID   int64
	hasAppt  bool
	shopWide bool
}

// Shop возвращает id салона, зашитый в pre_-канал. Для pre_all и bk_ каналов ok=false.
func (c Channel) Shop() (id int64, ok bool) { return c.shopID, c.hasShop }

// Appointment возвращает id записи из bk_<id>_… канала. У старого формата id нет.
func (c Channel) Appointment() (id int64, ok bool) { return c.apptID, c.hasAppt }

// General сообщает, что это общий вопрос pre_all_… без привязки к салону.
func (c Channel) General() bool { return c.shopWide }

func (c Channel) String() string { return c.Raw }

// Validate проверяет строку канала и классифицирует её. Чистая функция.
func Validate(raw string) (Channel, error) {
	if m := preRe.FindStringSubmatch(raw); m != nil {
		ch := Channel{Raw: raw, Kind: model.KindPreBooking}
		if m[1] == "all" {
			ch.shopWide = true
			return ch, nil
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Channel{}, NewError(CodeInvalidChannel, "shop id out of range", err)
		}
		ch.shopID, ch.hasShop = id, true
		return ch, nil
	}
	if m := bookingRe.FindStringSubmatch(raw); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Channel{}, NewError(CodeInvalidChannel, "appointment id out of range", err)
		}
		return Channel{Raw: raw, Kind: model.KindAppointment, apptID: id, hasAppt: true}, nil
	}
	if legacyBkRe.MatchString(raw) {
		return Channel{Raw: raw, Kind: model.KindAppointment}, nil
	}
	return Channel{}, NewError(CodeInvalidChannel, "channel does not match grammar", nil)
}

// Classify возвращает тип канала для индекса; невалидные строки — KindOther.
func Classify(raw string) model.ChannelKind {
	ch, err := Validate(raw)
	if err != nil {
		return model.KindOther
	}
	return ch.Kind
}
