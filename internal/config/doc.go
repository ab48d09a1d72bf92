// Package config holds the slot proxy configuration.
//
// Static settings (port, locale, display options, credential path) are read
// once at startup from a config file and SLOTPROXY_* environment variables using
// viper. The mutable subset that drives slot queries (calendar, filter term and
// the day window) lives in a Store, which publishes immutable snapshots through
// an atomic pointer. Requests take one snapshot and use it for their whole
// lifetime, so a concurrent update is seen entirely or not at all.
//
// Updates are persisted through a Persister before they become visible:
//
//   - FilePersister writes a JSON document next to the config file
//   - ValkeyPersister stores the same document under a single key
//   - MemoryPersister keeps it in process (no durability)
package config
