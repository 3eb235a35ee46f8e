package conf

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bamzi/jobrunner"
	"github.com/gojektech/heimdall/v6/httpclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type ConfigurationManager struct {
	configLocation  string
	refreshInterval string
	catalog         *Catalog
	logger          *zap.SugaredLogger
	State           State
	subscribers     []func(catalog *Catalog)
	lock            sync.RWMutex
}

type State struct {
	Timestamp int64
	Digest    [16]byte
}

func NewConfigurationManager(lc fx.Lifecycle, env *Env, logger *zap.SugaredLogger) *ConfigurationManager {
	config := &ConfigurationManager{
		configLocation:  env.ConfigLocation,
		refreshInterval: env.RefreshInterval,
		catalog:         &Catalog{ByName: map[string]CatalogEntity{}},
		logger:          logger.Named("configuration"),
		State: State{
			Timestamp: time.Now().Unix(),
		},
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			config.Init()
			return nil
		},
	})

	return config
}

// Init loads the catalog once and schedules the reload job. The job runner
// must already be started.
func (conf *ConfigurationManager) Init() {
	if conf.configLocation == "" {
		conf.logger.Info("No catalog location configured")
		return
	}
	conf.logger.Infof("Starting the ConfigurationManager with refresh %s", conf.refreshInterval)
	conf.load()
	conf.logger.Info("Done loading the catalog")
	err := jobrunner.Schedule(conf.refreshInterval, conf)
	if err != nil {
		conf.logger.Warnf("Could not start catalog reload job: %v", err)
	}
}

func (conf *ConfigurationManager) Run() {
	conf.load()
}

// Subscribe registers fn to receive every changed catalog. fn is also called
// right away when a catalog is already loaded.
func (conf *ConfigurationManager) Subscribe(fn func(catalog *Catalog)) {
	conf.lock.Lock()
	conf.subscribers = append(conf.subscribers, fn)
	current := conf.catalog
	conf.lock.Unlock()
	if len(current.Entities) > 0 {
		fn(current)
	}
}

func (conf *ConfigurationManager) Catalog() *Catalog {
	conf.lock.RLock()
	defer conf.lock.RUnlock()
	return conf.catalog
}

func (conf *ConfigurationManager) load() {
	var configContent []byte
	var err error
	if strings.Index(conf.configLocation, "file://") == 0 {
		configContent, err = conf.loadFile(conf.configLocation)
	} else if strings.Index(conf.configLocation, "http") == 0 {
		c, err := conf.loadUrl(conf.configLocation)
		if err != nil {
			conf.logger.Warnf("Unable to load catalog from %s: %v", conf.configLocation, err)
			return
		}
		configContent, err = unpackContent(c)
		if err != nil {
			conf.logger.Warnf("Unable to unpack catalog from %s: %v", conf.configLocation, err)
			return
		}
	} else {
		conf.logger.Errorf("Catalog location not supported: %s", conf.configLocation)
		return
	}
	if err != nil {
		// means no file found
		conf.logger.Infof("Could not find %s", conf.configLocation)
		return
	}
	if len(configContent) == 0 {
		conf.logger.Infof("No values read for %s", conf.configLocation)
		return
	}

	state := State{
		Timestamp: time.Now().Unix(),
		Digest:    md5.Sum(configContent),
	}

	conf.lock.RLock()
	changed := state.Digest != conf.State.Digest
	conf.lock.RUnlock()

	if changed {
		catalog, err := conf.parse(configContent)
		if err != nil {
			conf.logger.Warnf("Unable to parse catalog. Error is: %v. Please check file: %s", err, conf.configLocation)
			return
		}
		conf.lock.Lock()
		conf.catalog = indexEntities(catalog)
		conf.State = state
		subscribers := append([]func(*Catalog){}, conf.subscribers...)
		conf.lock.Unlock()
		conf.logger.Infof("Updated catalog with %d entities", len(catalog.Entities))
		for _, fn := range subscribers {
			fn(catalog)
		}
	}
}

func (conf *ConfigurationManager) loadUrl(configEndpoint string) ([]byte, error) {
	timeout := 10000 * time.Millisecond
	client := httpclient.NewClient(httpclient.WithHTTPTimeout(timeout), httpclient.WithRetryCount(3))

	req, err := http.NewRequest("GET", configEndpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		conf.logger.Errorf("Unable to open catalog url %s: %v", configEndpoint, err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == 200 {
		return io.ReadAll(resp.Body)
	}
	conf.logger.Infof("Endpoint returned %s", resp.Status)
	return nil, nil
}

type content struct {
	Id   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}

// unpackContent strips the config service envelope, plain catalogs pass through.
func unpackContent(themBytes []byte) ([]byte, error) {
	if len(themBytes) == 0 {
		return themBytes, nil
	}
	unpacked := &content{}
	err := json.Unmarshal(themBytes, unpacked)
	if err != nil {
		return nil, err
	}
	if unpacked.Data == nil {
		return themBytes, nil
	}
	return json.Marshal(unpacked.Data)
}

func (conf *ConfigurationManager) loadFile(location string) ([]byte, error) {
	configFileName := strings.ReplaceAll(location, "file://", "")

	configFile, err := os.Open(configFileName)
	if err != nil {
		conf.logger.Errorf("Unable to open catalog file %s: %v", configFileName, err)
		return nil, err
	}
	defer configFile.Close()
	return io.ReadAll(configFile)
}

func (conf *ConfigurationManager) parse(config []byte) (*Catalog, error) {
	catalog := &Catalog{}
	var err error
	if isYaml(conf.configLocation) {
		err = yaml.Unmarshal(config, catalog)
	} else {
		err = json.Unmarshal(config, catalog)
	}
	return catalog, err
}

func isYaml(location string) bool {
	return strings.HasSuffix(location, ".yaml") || strings.HasSuffix(location, ".yml")
}

// indexEntities fills ByName, later entries win
func indexEntities(catalog *Catalog) *Catalog {
	byName := make(map[string]CatalogEntity)
	for _, e := range catalog.Entities {
		byName[e.Name] = e
	}
	catalog.ByName = byName
	return catalog
}
