package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind - класс ошибки конвейера агрегации
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransientNetwork - таймауты, ошибки соединения, не-2xx ответы
	KindTransientNetwork
	// KindProviderData - некорректный ответ провайдера или статус ошибки провайдера
	KindProviderData
	// KindPersistenceConflict - нарушение unique/check ограничений при записи
	KindPersistenceConflict
	// KindValidation - запись без обязательных полей
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindProviderData:
		return "provider_data"
	case KindPersistenceConflict:
		return "persistence_conflict"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

type kinded interface {
	Kind() Kind
}

// KindError связывает произвольную ошибку с Kind
type KindError struct {
	kind Kind
	msg  string
	err  error
}

func (e *KindError) Error() string {
	if e.err == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *KindError) Unwrap() error { return e.err }

func (e *KindError) Kind() Kind { return e.kind }

// WithKind оборачивает err, помечая его kind
func WithKind(kind Kind, err error, format string, args ...interface{}) error {
	return &KindError{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func ProviderData(format string, args ...interface{}) error {
	return &KindError{kind: KindProviderData, msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &KindError{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// KindOf возвращает первый kind в цепочке ошибок
func KindOf(err error) Kind {
	var k kinded
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

func IsTransient(err error) bool {
	return KindOf(err) == KindTransientNetwork
}

func IsProviderData(err error) bool {
	return KindOf(err) == KindProviderData
}

func IsPersistenceConflict(err error) bool {
	return KindOf(err) == KindPersistenceConflict
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
