package config

type AppConfig struct {
	Server  ServerConfig
	Log     LogConfig
	Credits CreditsConfig
	Pool    PoolConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	creditsCfg, err := LoadCredits()
	if err != nil {
		return AppConfig{}, err
	}
	poolCfg, err := LoadPool()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Log:     logCfg,
		Credits: creditsCfg,
		Pool:    poolCfg,
	}, nil
}
