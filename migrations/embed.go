// Package migrations содержит SQL для справочных таблиц, которые читает сервис чата.
// В продакшене таблицы принадлежат маркетплейсу; здесь они нужны режиму -dev и тестам.
package migrations

import "embed"

// Files — все .sql файлы каталога (применяются по имени: 001, 002, ...).
//
//go:embed *.sql
var Files embed.FS
