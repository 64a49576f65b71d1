package main

import (
	"mtgstats-backend/cmd/mtgstats/commands"
	"mtgstats-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
