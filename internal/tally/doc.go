// Package tally talks to a Tally Prime instance over its XML-over-HTTP
// export interface and turns the responses into formatted business answers.
//
// The package deliberately keeps one parser per export shape: Tally reuses
// tags across reports with different meanings (BSMAINAMT appears in both the
// profit-and-loss and the balance-sheet export), so a generic row parser
// would have to guess. Each parser states exactly which tags it reads.
//
// All network and parse failures are folded into a single in-band
// representation: a synthesized <ENVELOPE><ERROR>...</ERROR></ENVELOPE>
// payload. The Gate inspects responses for that marker and falls back to the
// snapshot cache, so callers see either live data or explicitly-labeled
// stale data, never an unhandled failure.
package tally
