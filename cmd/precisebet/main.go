package main

import (
	"context"

	"precisebet/cmd/precisebet/commands"
	"precisebet/lib/osutil"
	"precisebet/lib/serviceutil"
	"precisebet/lib/telemetry"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()

	tel, err := telemetry.SetupFromEnv(ctx, "precisebet")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
