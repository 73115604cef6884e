// Package database opens the gateway's SQLite file and applies its schema.
//
// The schema holds the last value of every device channel, the telegram
// journal and devices learned through teach-in; internal/store owns the
// queries. Migration files are embedded by the migrations package, which
// registers them on import:
//
//	import _ "github.com/nerrad567/gray-logic-telegrams/migrations"
//
//	db, err := database.Open(database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx)
//
// Files are named YYYYMMDD_HHMMSS_name.up.sql with a matching .down.sql.
// Columns added later must be nullable or carry a default.
package database
