/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	serverPort         = "server.port"
	maxUploadSizeBytes = "server.max_upload_size_bytes"

	cryptoEnable     = "crypto.enable"
	cryptoSecretPath = "crypto.secret_path"
	cryptoSecretEnv  = "ENCRYPTION_SECRET"

	dbDriver         = "db.driver"
	dbPath           = "db.path"
	dbName           = "db.name"
	dbHost           = "db.host"
	dbPort           = "db.port"
	dbUsername       = "db.username"
	dbPassword       = "db.password"
	dbSSLMode        = "db.ssl_mode"
	dbMaxOpenConns   = "db.max_open_conns"
	dbMaxIdleConns   = "db.max_idle_conns"
	dbConnectTimeout = "db.connect_timeout"

	shareRandomSuffix = "share.random_suffix"
	urlProbeTimeout   = "share.url_probe_timeout_seconds"
)

const (
	// DefaultMaxUploadBytes bounds a single upload body.
	DefaultMaxUploadBytes = int64(100 * 1024 * 1024)
	// DefaultTotalStorageBytes is the quota assigned to a storage config
	// created without an explicit limit.
	DefaultTotalStorageBytes = int64(10 * 1024 * 1024 * 1024)
	// DefaultUrlProbeTimeoutSeconds bounds the HEAD/GET metadata probe.
	DefaultUrlProbeTimeoutSeconds = 10
)
