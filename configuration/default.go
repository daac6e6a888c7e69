package configuration

func Default() Configuration {
	return Configuration{
		HttpAddr:          "127.0.0.1:8080",
		HttpsEnabled:      false,
		HttpsSelfsigned:   false,
		Dir:               "data",
		BlockSize:         512,
		NameSize:          32,
		IndexSegmentSize:  8192,
		Compression:       "deflate",
		ApiKey:            "",
		ApiSecret:         "",
		EnableCompression: true,
		LogLevel:          "info",
		Version:           false,
		ShowBanner:        true,
		ShowConfig:        false,
	}
}
