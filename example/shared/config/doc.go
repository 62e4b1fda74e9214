// Package config provides the application configuration of the examples and factories that open
// a database for the configured driver and wrap it into a sqlengine.Connection.
//
// Settings are read by viper from an optional config file and TABLESERVICE_* environment variables,
// the environment taking precedence:
//
//	TABLESERVICE_DRIVER             pgx | postgres | sqlx | sqlite
//	TABLESERVICE_DSN                data source name of the driver
//	TABLESERVICE_MAX_OPEN_CONNS     pool size (MaxConns for pgx)
//	TABLESERVICE_MAX_IDLE_CONNS     idle connections (MinConns for pgx)
//	TABLESERVICE_CONN_MAX_LIFETIME  e.g. 1h
//	TABLESERVICE_CONN_MAX_IDLE_TIME e.g. 5m
//	TABLESERVICE_CONNECT_TIMEOUT    e.g. 5s
//	TABLESERVICE_LOG_LEVEL          debug | info | warn | error
//
// This package is part of the shell (infrastructure) layer of the examples.
package config
