// Package scheduler запускает pipeline по cron расписанию.
//
// Структура:
//   - scheduler.go — цикл Scheduler (Start, Tick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Expr:     "*/15 * * * *",
//	    Timezone: "Europe/Madrid",
//	    Run:      func(ctx context.Context) error { return runOnce(ctx) },
//	    Logger:   logger,
//	})
//	if err != nil {
//	    // невалидное cron выражение
//	}
//
//	// Блокируется до отмены ctx
//	err = sched.Start(ctx)
//
// Запуски не перекрываются: если run длится дольше интервала,
// пропущенные слоты не догоняются.
package scheduler
