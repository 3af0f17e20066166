package refcheck

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghetzel/refcheck/dal"
	"github.com/ghodss/yaml"
)

var SchemaFileExtensions = []string{`.yml`, `.yaml`, `.json`}

// Load collection definitions from a single file, or from every schema file in a directory (in
// lexical order).
func LoadSchemata(fileOrDirPath string) ([]*dal.Collection, error) {
	if stat, err := os.Stat(fileOrDirPath); err == nil {
		if !stat.IsDir() {
			return LoadSchemataFromFile(fileOrDirPath)
		}
	} else {
		return nil, err
	}

	if entries, err := ioutil.ReadDir(fileOrDirPath); err == nil {
		names := make([]string, 0)

		for _, entry := range entries {
			if !entry.IsDir() && isSchemaFile(entry.Name()) {
				names = append(names, entry.Name())
			}
		}

		sort.Strings(names)
		collections := make([]*dal.Collection, 0)

		for _, name := range names {
			if loaded, err := LoadSchemataFromFile(filepath.Join(fileOrDirPath, name)); err == nil {
				collections = append(collections, loaded...)
			} else {
				return nil, err
			}
		}

		return collections, nil
	} else {
		return nil, err
	}
}

// Load collection definitions from a YAML or JSON file.  The file may contain a single collection or a
// list of them.
func LoadSchemataFromFile(filename string) ([]*dal.Collection, error) {
	if data, err := ioutil.ReadFile(filename); err == nil {
		if collections, err := ParseSchemata(data); err == nil {
			return collections, nil
		} else {
			return nil, fmt.Errorf("%v: %v", filename, err)
		}
	} else {
		return nil, err
	}
}

func ParseSchemata(data []byte) ([]*dal.Collection, error) {
	var collections []*dal.Collection

	if err := yaml.Unmarshal(data, &collections); err != nil {
		var collection dal.Collection

		if err := yaml.Unmarshal(data, &collection); err == nil {
			collections = []*dal.Collection{&collection}
		} else {
			return nil, err
		}
	}

	for _, collection := range collections {
		if collection == nil {
			return nil, fmt.Errorf("schema contains an empty definition")
		}

		if collection.IdentityField == `` {
			collection.IdentityField = dal.DefaultIdentityField
		}

		if err := collection.Check(); err != nil {
			return nil, err
		}
	}

	return collections, nil
}

func isSchemaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	for _, want := range SchemaFileExtensions {
		if ext == want {
			return true
		}
	}

	return false
}
