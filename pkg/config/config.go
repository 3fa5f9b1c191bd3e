package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		UserAgent string        `yaml:"user_agent"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
		Burst     int           `yaml:"burst"`
	} `yaml:"http"`

	Sources struct {
		TickersURL    string `yaml:"tickers_url"`
		MembershipURL string `yaml:"membership_url"`
	} `yaml:"sources"`

	Join struct {
		NormalizeTickers bool `yaml:"normalize_tickers"`
	} `yaml:"join"`

	Edgar struct {
		BaseURL       string `yaml:"base_url"`
		BrowseURL     string `yaml:"browse_url"`
		FormType      string `yaml:"form_type"`
		AmendmentType string `yaml:"amendment_type"`
		Count         int    `yaml:"count"`
	} `yaml:"edgar"`

	Resolver struct {
		Workers int `yaml:"workers"`
	} `yaml:"resolver"`

	Output struct {
		Path string `yaml:"path"`
	} `yaml:"output"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
	} `yaml:"database"`

	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/filingmap/config.yaml"),
			"/etc/filingmap/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.HTTP.UserAgent == "" {
		config.HTTP.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if config.HTTP.Timeout == 0 {
		config.HTTP.Timeout = 30 * time.Second
	}
	if config.HTTP.RateLimit == 0 {
		config.HTTP.RateLimit = 8
	}
	if config.HTTP.Burst == 0 {
		config.HTTP.Burst = 1
	}

	if config.Sources.TickersURL == "" {
		config.Sources.TickersURL = "https://www.sec.gov/files/company_tickers.json"
	}
	if config.Sources.MembershipURL == "" {
		config.Sources.MembershipURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	}

	if config.Edgar.BaseURL == "" {
		config.Edgar.BaseURL = "https://www.sec.gov"
	}
	if config.Edgar.BrowseURL == "" {
		config.Edgar.BrowseURL = config.Edgar.BaseURL + "/cgi-bin/browse-edgar?action=getcompany&CIK=%d&type=%s&dateb=&owner=include&count=%d"
	}
	if config.Edgar.FormType == "" {
		config.Edgar.FormType = "10-K"
	}
	if config.Edgar.AmendmentType == "" {
		config.Edgar.AmendmentType = config.Edgar.FormType + "/A"
	}
	if config.Edgar.Count == 0 {
		config.Edgar.Count = 10
	}

	if config.Resolver.Workers == 0 {
		config.Resolver.Workers = 1
	}

	if config.Output.Path == "" {
		config.Output.Path = "sp500_10k_urls.csv"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "filing_links"
	}

	if config.Cache.TTL == 0 {
		config.Cache.TTL = 24 * time.Hour
	}
}

func mergeWithEnv(config *Config) {
	if agent := os.Getenv("FILINGMAP_USER_AGENT"); agent != "" {
		config.HTTP.UserAgent = agent
	}
	if workers := os.Getenv("FILINGMAP_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Resolver.Workers = n
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		config.Cache.RedisAddr = redisAddr
	}
}
