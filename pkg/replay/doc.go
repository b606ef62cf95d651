// Package replay records the actions dispatched to a store into a
// ports.KeyValueStore and replays them later, checking that every step fails
// (or succeeds) exactly as it did when it was recorded.
//
// Entries are stored under "<prefix><index>" with the entry count under
// "<prefix>count". Action types must be registered on the Codec.
package replay
