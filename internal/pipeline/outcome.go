package pipeline

import "context"

// Outcome — результат одного выполнения Action: Success(payload) или Failure(err).
//
// Нулевое значение эквивалентно Success(nil).
type Outcome struct {
	payload any
	err     error
}

// Success создаёт успешный Outcome.
func Success(payload any) Outcome {
	return Outcome{payload: payload}
}

// Failure создаёт неуспешный Outcome. nil err заменяется ErrNoFailureReason.
func Failure(err error) Outcome {
	if err == nil {
		err = ErrNoFailureReason
	}
	return Outcome{err: err}
}

// FromResult собирает Outcome из привычной пары (value, error).
func FromResult(payload any, err error) Outcome {
	if err != nil {
		return Failure(err)
	}
	return Success(payload)
}

// IsSuccess возвращает true для Success.
func (o Outcome) IsSuccess() bool {
	return o.err == nil
}

// Payload возвращает payload (nil для Failure).
func (o Outcome) Payload() any {
	return o.payload
}

// Err возвращает ошибку (nil для Success).
func (o Outcome) Err() error {
	return o.err
}

// Action — единица работы шага.
//
// Action получает только ctx и RunContext. Повторный вызов (retry)
// выполняет работу с нуля.
type Action interface {
	Execute(ctx context.Context, rc *RunContext) Outcome
}

// ActionFunc — адаптер функции к Action.
type ActionFunc func(ctx context.Context, rc *RunContext) Outcome

// Execute вызывает f.
func (f ActionFunc) Execute(ctx context.Context, rc *RunContext) Outcome {
	return f(ctx, rc)
}
