// Package slicebox implements reducer-based application state. Slices of the
// state tree are owned by pure Reducers that are registered by name on a
// Root, and a Store dispatches typed Actions through that Root in order,
// optionally recording each one in a Journal backed by Redis, bbolt, or
// Postgres so the state can be rebuilt by replay.
//
// Typical usage looks like:
//   - Create a Root and register slices on it (RegisterArticle does this for
//     the article slice)
//   - Open a Store with configuration
//   - Dispatch Actions such as ReceiveArticle
//   - Read slices back with Select
//
// The examples/ directory contains a runnable program that exercises the API.
package slicebox
