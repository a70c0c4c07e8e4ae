package config

// EnvPrefix scopes every envconfig lookup for this service.
const EnvPrefix = "lending"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "LENDING_DB_DSN"
	EnvDBHost = "LENDING_DB_HOST"
	EnvDBUser = "LENDING_DB_USER"
	EnvDBName = "LENDING_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
