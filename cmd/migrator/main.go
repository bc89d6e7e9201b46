// migrator — запуск и мониторинг задачи репликации через pipeline шагов.
//
// Использование:
//
//	migrator [--config FILE] [--target REF] [--output table|json] <command> [flags]
//
// Команды:
//
//	run       Запуск pipeline (или start + monitor в режиме direct)
//	status    Текущее состояние задачи
//	history   История run
//	events    Поток событий из RabbitMQ
//	serve     HTTP control API
//	schedule  Периодические run по cron
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JFCandia/aws-dms-migration-orchestrator/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
