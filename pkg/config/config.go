/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getInt64(key string, defaultValue int64) int64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt64(key)
}

func GetServerPort() int {
	return getInt(serverPort, 8787)
}

func GetMaxUploadSizeBytes() int64 {
	return getInt64(maxUploadSizeBytes, DefaultMaxUploadBytes)
}

func IsCryptoEnable() bool {
	return getBool(cryptoEnable, true)
}

// GetEncryptionSecret resolves the process-wide secret. The environment
// variable wins over the key file so that rotation does not require a
// redeployed config volume.
func GetEncryptionSecret() (string, error) {
	if secret := os.Getenv(cryptoSecretEnv); secret != "" {
		return secret, nil
	}
	keyFile := getString(cryptoSecretPath, "")
	if keyFile == "" {
		return "", fmt.Errorf("%s is not set and crypto.secret_path of config is not set", cryptoSecretEnv)
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return "", err
	}
	secret := strings.TrimSuffix(string(data), "\n")
	if secret == "" {
		return "", fmt.Errorf("the secret file %s is empty", keyFile)
	}
	return secret, nil
}

func GetDBDriver() string {
	return getString(dbDriver, "sqlite3")
}

func GetDBPath() string {
	return getString(dbPath, "stashbin.db")
}

func GetDBName() string {
	return getString(dbName, "stashbin")
}

func GetDBHost() string {
	return getString(dbHost, "127.0.0.1")
}

func GetDBPort() int {
	return getInt(dbPort, 5432)
}

func GetDBUsername() string {
	return getString(dbUsername, "stashbin")
}

func GetDBPassword() string {
	return getString(dbPassword, "")
}

func GetDBSSLMode() string {
	return getString(dbSSLMode, "disable")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 0)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 0)
}

func GetDBConnectTimeout() int {
	return getInt(dbConnectTimeout, 10)
}

func IsShareRandomSuffixEnable() bool {
	return getBool(shareRandomSuffix, true)
}

func GetUrlProbeTimeoutSeconds() int {
	timeout := getInt(urlProbeTimeout, DefaultUrlProbeTimeoutSeconds)
	if timeout <= 0 {
		klog.Warningf("invalid url probe timeout %d, fallback to default", timeout)
		return DefaultUrlProbeTimeoutSeconds
	}
	return timeout
}
