package main

import "libracirc/internal/config"

func testConfig() config.Config {
	return config.Config{
		Port:             "0",
		DirectoryBackend: config.BackendMemory,
		ValidMemberIDs:   "1,2",
		RateLimitRPS:     100,
		RateLimitBurst:   100,
	}
}
