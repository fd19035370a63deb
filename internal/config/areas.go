package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AreaSourceEntry is one procurement listing page for an area.
type AreaSourceEntry struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// AreaEntry is one selectable geographic area in the catalog.
type AreaEntry struct {
	ID      string            `mapstructure:"id"`
	Name    string            `mapstructure:"name"`
	Sources []AreaSourceEntry `mapstructure:"sources"`
}

// AreasCatalog is the set of areas users can subscribe to.
type AreasCatalog struct {
	Areas []AreaEntry `mapstructure:"areas"`
}

// DefaultAreasCatalog covers the initially supported regions. Source URLs
// change over time; the catalog file overrides these when present.
func DefaultAreasCatalog() AreasCatalog {
	return AreasCatalog{
		Areas: []AreaEntry{
			{
				ID:   "aichi",
				Name: "愛知県",
				Sources: []AreaSourceEntry{
					{ID: "aichi-pref", Name: "愛知県 入札・契約・公売情報", URL: "https://www.pref.aichi.jp/life/5/19/"},
					{ID: "aichi-nagoya", Name: "名古屋市 入札・契約", URL: "https://www.city.nagoya.jp/jigyou/category/43-0-0-0-0-0-0-0-0-0.html"},
					{ID: "aichi-houmukyoku", Name: "名古屋法務局 入札・公募", URL: "https://houmukyoku.moj.go.jp/nagoya/table/nyuusatsu/all.html"},
				},
			},
			{
				ID:   "tokyo",
				Name: "東京都",
				Sources: []AreaSourceEntry{
					{ID: "tokyo-zaimu", Name: "東京都財務局 契約情報", URL: "https://www.zaimu.metro.tokyo.lg.jp/keiyaku/"},
					{ID: "tokyo-metro", Name: "東京都 入札・契約", URL: "https://www.metro.tokyo.lg.jp/tosei/hodohappyo/nyusatsu.html"},
				},
			},
			{
				ID:   "osaka",
				Name: "大阪府",
				Sources: []AreaSourceEntry{
					{ID: "osaka-pref", Name: "大阪府 入札・契約情報", URL: "https://www.pref.osaka.lg.jp/gyoumu/nyuusatsu/index.html"},
					{ID: "osaka-city", Name: "大阪市 入札・契約情報", URL: "https://www.city.osaka.lg.jp/zaisei/page/0000006691.html"},
				},
			},
			{
				ID:   "kanagawa",
				Name: "神奈川県",
				Sources: []AreaSourceEntry{
					{ID: "kanagawa-pref", Name: "神奈川県 入札・契約情報", URL: "https://www.pref.kanagawa.jp/osirase/nyusatsu.html"},
					{ID: "kanagawa-yokohama", Name: "横浜市 入札・契約情報", URL: "https://www.city.yokohama.lg.jp/business/nyusatsu/"},
				},
			},
			{
				ID:   "national",
				Name: "国（中央省庁）",
				Sources: []AreaSourceEntry{
					{ID: "national-aichi-roudou", Name: "愛知労働局 入札情報", URL: "https://jsite.mhlw.go.jp/aichi-roudoukyoku/choutatsu_uriharai/nyusatsu.html"},
					{ID: "national-nagoya-kokuzei", Name: "名古屋国税局 調達情報", URL: "https://www.nta.go.jp/about/organization/nagoya/procurement/chotatsu.htm"},
				},
			},
		},
	}
}

// AreasCatalogHolder serves the current catalog and hot-reloads it when the
// file changes.
type AreasCatalogHolder struct {
	current atomic.Value // holds AreasCatalog
}

func NewAreasCatalogHolder(cfg Config) (*AreasCatalogHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.AreasConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("areas")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/koubonavi")
		v.AddConfigPath(".")
	}

	holder := &AreasCatalogHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultAreasCatalog())
		return holder, nil
	}

	var catalog AreasCatalog
	if err := v.Unmarshal(&catalog); err != nil {
		return nil, err
	}
	if err := validateAreasCatalog(catalog); err != nil {
		return nil, err
	}
	holder.current.Store(catalog)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AreasCatalog
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[areas-config] reload failed: %v", err)
			return
		}
		if err := validateAreasCatalog(updated); err != nil {
			log.Printf("[areas-config] invalid catalog ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[areas-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *AreasCatalogHolder) Get() AreasCatalog {
	return h.current.Load().(AreasCatalog)
}

func validateAreasCatalog(catalog AreasCatalog) error {
	if len(catalog.Areas) == 0 {
		return errors.New("areas catalog cannot be empty")
	}
	seen := map[string]struct{}{}
	for _, area := range catalog.Areas {
		id := strings.TrimSpace(area.ID)
		if id == "" {
			return errors.New("area id cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return errors.New("duplicate area id: " + id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
