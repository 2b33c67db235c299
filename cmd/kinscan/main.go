// cmd/kinscan/main.go
package main

import (
	"kinscan/internal/app"
	"kinscan/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
