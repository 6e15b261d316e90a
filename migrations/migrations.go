// Package migrations embeds the SQL schema migrations shipped with the bot.
package migrations

import "embed"

// FS holds every *.up.sql file of this directory.
//
//go:embed *.sql
var FS embed.FS
