package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/database"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/jimdaga/ascend/internal/models"
	"gorm.io/gorm"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	openDB  func(cfg *config.Config) (*gorm.DB, error)
	closeDB func(db *gorm.DB) error
	db      *gorm.DB
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		openDB: func(cfg *config.Config) (*gorm.DB, error) {
			return database.Init(cfg.DatabaseURL)
		},
		closeDB: database.Close,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			c.configErr = err
			return
		}
		slog.SetDefault(logging.New(cfg.LogLevel, cfg.LogFormat))
		c.config = cfg
	})
	return c.config, c.configErr
}

// database opens the connection once per invocation
func (c *commandContext) database() (*gorm.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	db, err := c.openDB(cfg)
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *commandContext) close() {
	if c.db == nil {
		return
	}
	if err := c.closeDB(c.db); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
	c.db = nil
}

func findUser(db *gorm.DB, email string) (models.User, error) {
	if strings.TrimSpace(email) == "" {
		return models.User{}, errors.New("--user is required")
	}
	var user models.User
	if err := db.Where("email = ?", strings.TrimSpace(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("no user with email %s", email)
		}
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}
