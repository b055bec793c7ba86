package main

import (
	_ "github.com/snapwall/snapwall/src/admintools"
	_ "github.com/snapwall/snapwall/src/fakes3"
	_ "github.com/snapwall/snapwall/src/migration/cmd"
	"github.com/snapwall/snapwall/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
