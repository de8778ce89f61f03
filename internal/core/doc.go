// Package core provides the domain logic of the spare-part movement bot.
//
// Nothing here knows about chat transports, HTTP or a particular store.
// The bot, the HTTP API and the CLI all drive the same types.
//
// # Architecture
//
//   - Normalizer: [Normalize] for headers and synonyms, [NormalizeIdentifier]
//     for part identifiers.
//   - Schema resolution: [ResolveColumn] and [ResolveColumns] map a
//     human-edited header row onto canonical [Field]s using a [SynonymSet].
//     [ResolveLedgerSchema] requires every ledger field;
//     [ResolveMasterSchema] requires only an identifier or a name.
//   - Entity resolution: [Resolve] returns exactly one of [Resolved],
//     [Ambiguous] or [Lenient]. [Resolver] reads the live catalog and
//     degrades to Lenient when the catalog cannot be read.
//   - Search: [Search] returns display records for every identifier or name
//     containing the query. [Searcher] propagates read failures.
//   - Transaction: [Transaction] walks part, movement, quantity, condition
//     and purpose in that order, then commits one row through a
//     [Committer] such as [Ledger].
//
// # Stores
//
// Sheets are read through [SheetReader] and appended through
// [SheetAppender]. Every call re-reads the sheet; nothing is cached
// between calls because the spreadsheet is edited by hand.
//
// # Error Handling
//
// Typed errors ([ConfigurationError], [SchemaError], [AccessError],
// [ValidationError]) are mapped to coded user messages by [MapError]:
//
//   - CFG: configuration
//   - SCH: sheet headers
//   - ACC: store access
//   - VAL: conversation input
//   - SYS: busy, cancelled or timed-out requests
package core
