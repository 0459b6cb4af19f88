// Package engines registers every built-in backend adapter. Import it
// for its side effects when all schemes should be available:
//
//	import _ "github.com/omnikv/omnistore/lib/backend/engines"
//
// Applications that only need a subset can instead blank-import the
// individual engine packages to keep their dependency graph small.
package engines

import (
	_ "github.com/omnikv/omnistore/lib/backend/engines/bolt"
	_ "github.com/omnikv/omnistore/lib/backend/engines/fs"
	_ "github.com/omnikv/omnistore/lib/backend/engines/memory"
	_ "github.com/omnikv/omnistore/lib/backend/engines/redis"
	_ "github.com/omnikv/omnistore/lib/backend/engines/s3"
	_ "github.com/omnikv/omnistore/lib/backend/engines/sql"
)
