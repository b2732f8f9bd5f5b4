// Command newcomers は新入社員オンボーディングの自動化を実行する。
//
//	newcomers [run|worker|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/newcomers/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
