package migrations

import (
	"fmt"

	"github.com/snapwall/snapwall/src/migration/types"
)

// Every migration in this package, keyed by version. Filled by init functions.
var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	if existing, ok := All[m.Version()]; ok {
		panic(fmt.Sprintf("migrations %s and %s share version %s", existing.Name(), m.Name(), m.Version()))
	}
	All[m.Version()] = m
}
