package repo

import "errors"

// Общие ошибки реестра runs.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState — операция невозможна в текущем статусе run'а.
	ErrInvalidState = errors.New("invalid state")
)
