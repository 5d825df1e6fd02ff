// Command circulate is the front-desk client: it processes scans and typed
// codes against the shared inventory and prints the outcome.
//
// Usage:
//
//	circulate scan                 read codes line by line from stdin
//	circulate manual CODE --title  process a typed code, registering it if unknown
//	circulate ocr [--pick N]       extract identifier candidates from stdin text
//	circulate resolve CODE         show the record a code resolves to
//	circulate search QUERY         search titles and authors
//	circulate loans                list the operator's active loans
//	circulate metadata ISBN        look up bibliographic details
//	circulate token                mint an API token for the operator
//	circulate enrich               fill in authors for placeholder records
//	circulate profile show|init    inspect or write the operator profile
//
// With --memory the commands run against a seeded in-process store, and
// with --sqlite PATH against a single-file database, instead of PostgreSQL.
// Unset flags fall back to the profile at $XDG_CONFIG_HOME/librarydesk/profile.toml.
package main
