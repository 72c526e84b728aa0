// Time Nest APIサーバーのエントリーポイントです。
package main

import (
	"os"

	"time-nest/backend/internal/logging"
)

func main() {
	if err := newRootCmd(defaultApp()).Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
