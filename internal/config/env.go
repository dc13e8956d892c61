package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are the dotenv files consulted for a production build, in
// ascending precedence (later files override earlier ones).
var envFiles = []string{".env", ".env.production"}

// LoadRuntimeEnv reads the project's dotenv files and returns the merged
// key/value map handed to the analysis runtimes. Missing files are fine;
// a file that exists but cannot be parsed is an error.
func LoadRuntimeEnv(dir string) (map[string]string, error) {
	env := map[string]string{}
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			env[k] = v
		}
	}
	return env, nil
}

// RuntimeEnv loads the project dotenv files for this config's directory.
func (c *Config) RuntimeEnv() (map[string]string, error) {
	return LoadRuntimeEnv(c.Dir())
}
