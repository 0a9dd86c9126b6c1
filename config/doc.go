// Package config loads and validates the bridge configuration.
//
// Configuration comes from a JSON file, with environment variables
// overriding individual fields (DDSBRIDGE_NATS_URL and friends). The
// zero config is usable: it selects the in-process transport with
// default queue depths and no servers.
//
// SafeConfig wraps a Config for concurrent readers with atomic
// updates; the daemon holds one and hands copies to subsystems.
package config
