package main

import (
	"github.com/omnikv/omnistore/cmd"
	_ "github.com/omnikv/omnistore/lib/backend/engines"
)

func main() {
	cmd.Execute()
}
