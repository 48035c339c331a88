// Package swordconf reads and writes SWORD .conf files: the mods.d INI
// dialect that describes a module's driver, data path, compression,
// encoding, and versification. The CLI writes one from its flags after
// every run, including "-a" appends; it does not read an existing module's
// .conf. Parsing is used by internal/catalog.
package swordconf

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Conf is a parsed (or about-to-be-written) SWORD .conf file.
type Conf struct {
	ModuleName    string
	Description   string
	DataPath      string
	ModDrv        string
	Encoding      string
	Lang          string
	Version       string
	About         string
	Copyright     string
	License       string
	Category      string
	LCSH          string
	SourceType    string
	BlockType     string
	CompressType  string
	CipherKey     string
	Versification string
	Properties    map[string]string
	FilePath      string
}

// Parse reads a SWORD .conf file, handling [Section] headers, "#" comments,
// backslash line continuation, and key=value pairs.
func Parse(path string) (*Conf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open conf file: %w", err)
	}
	defer f.Close()

	conf := &Conf{Properties: make(map[string]string), FilePath: path}

	scanner := bufio.NewScanner(f)
	var multilineKey string
	var multilineValue strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if multilineKey != "" {
				conf.setProperty(multilineKey, strings.TrimSpace(multilineValue.String()))
				multilineKey = ""
				multilineValue.Reset()
			}
			section := strings.TrimPrefix(strings.TrimSuffix(line, "]"), "[")
			if conf.ModuleName == "" {
				conf.ModuleName = section
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && multilineKey != "" {
			multilineValue.WriteString(" ")
			multilineValue.WriteString(strings.TrimSpace(line))
			continue
		}

		if multilineKey != "" {
			conf.setProperty(multilineKey, strings.TrimSpace(multilineValue.String()))
			multilineKey = ""
			multilineValue.Reset()
		}

		idx := strings.Index(line, "=")
		if idx == -1 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if strings.HasSuffix(value, "\\") {
			multilineKey = key
			multilineValue.WriteString(strings.TrimSuffix(value, "\\"))
			continue
		}
		conf.setProperty(key, value)
	}
	if multilineKey != "" {
		conf.setProperty(multilineKey, strings.TrimSpace(multilineValue.String()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading conf file: %w", err)
	}
	return conf, nil
}

func (c *Conf) setProperty(key, value string) {
	c.Properties[key] = value
	switch strings.ToLower(key) {
	case "description":
		c.Description = value
	case "datapath":
		c.DataPath = value
	case "moddrv":
		c.ModDrv = value
	case "encoding":
		c.Encoding = value
	case "lang":
		c.Lang = value
	case "version":
		c.Version = value
	case "about":
		c.About = value
	case "copyright":
		c.Copyright = value
	case "distributionlicense":
		c.License = value
	case "category":
		c.Category = value
	case "lcsh":
		c.LCSH = value
	case "sourcetype":
		c.SourceType = value
	case "blocktype":
		c.BlockType = value
	case "compresstype":
		c.CompressType = value
	case "cipherkey":
		c.CipherKey = value
	case "versification":
		c.Versification = value
	}
}

// Write serializes the conf back to the mods.d INI dialect. Order follows
// the field order SWORD convention expects: [ModuleName] header first, then
// DataPath/ModDrv/metadata, with Properties entries not already covered by
// a named field appended last so round-tripped confs don't lose custom
// keys.
func Write(path string, c *Conf) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create conf directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create conf file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "[%s]\n", c.ModuleName)
	writeField(w, "DataPath", c.DataPath)
	writeField(w, "ModDrv", c.ModDrv)
	writeField(w, "BlockType", c.BlockType)
	writeField(w, "CompressType", c.CompressType)
	writeField(w, "SourceType", c.SourceType)
	writeField(w, "Encoding", c.Encoding)
	writeField(w, "Versification", c.Versification)
	writeField(w, "CipherKey", c.CipherKey)
	writeField(w, "Lang", c.Lang)
	writeField(w, "Description", c.Description)
	writeField(w, "About", c.About)
	writeField(w, "Version", c.Version)
	writeField(w, "Category", c.Category)
	writeField(w, "LCSH", c.LCSH)
	writeField(w, "DistributionLicense", c.License)

	known := map[string]bool{
		"datapath": true, "moddrv": true, "blocktype": true, "compresstype": true,
		"sourcetype": true, "encoding": true, "versification": true, "cipherkey": true,
		"lang": true, "description": true, "about": true, "version": true,
		"category": true, "lcsh": true, "distributionlicense": true,
	}
	for k, v := range c.Properties {
		if known[strings.ToLower(k)] {
			continue
		}
		writeField(w, k, v)
	}
	return w.Flush()
}

func writeField(w *bufio.Writer, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s=%s\n", key, value)
}

// ModuleType classifies the module by its driver.
func (c *Conf) ModuleType() string {
	switch strings.ToLower(c.ModDrv) {
	case "ztext", "ztext4", "rawtext", "rawtext4":
		return "Bible"
	case "zcom", "zcom4", "rawcom", "rawcom4":
		return "Commentary"
	case "zld", "rawld", "rawld4":
		return "Dictionary"
	case "rawgenbook":
		return "GenBook"
	default:
		return "Unknown"
	}
}

// IsCompressed reports whether the module's driver is a z* (compressed) one.
func (c *Conf) IsCompressed() bool {
	switch strings.ToLower(c.ModDrv) {
	case "ztext", "ztext4", "zcom", "zcom4", "zld":
		return true
	default:
		return false
	}
}

// IsEncrypted reports whether a cipher key is configured.
func (c *Conf) IsEncrypted() bool {
	return c.CipherKey != ""
}

// FindConfFiles lists the .conf files in a mods.d directory.
func FindConfFiles(modsDir string) ([]string, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mods.d directory: %w", err)
	}
	var confFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".conf") {
			confFiles = append(confFiles, filepath.Join(modsDir, entry.Name()))
		}
	}
	return confFiles, nil
}

// LoadFromPath parses every .conf file found under swordPath/mods.d.
func LoadFromPath(swordPath string) ([]*Conf, error) {
	modsDir := filepath.Join(swordPath, "mods.d")
	confFiles, err := FindConfFiles(modsDir)
	if err != nil {
		return nil, err
	}
	var confs []*Conf
	for _, path := range confFiles {
		conf, err := Parse(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to parse conf file %s: %v\n", path, err)
			continue
		}
		confs = append(confs, conf)
	}
	return confs, nil
}
