package migration

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type fileScanner struct {
	pattern *regexp.Regexp
}

// NewFileScanner creates a FileScanner for {version}_{description}.sql files.
func NewFileScanner() FileScanner {
	return &fileScanner{
		pattern: regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`),
	}
}

// ScanMigrations scans dir inside fsys and returns the migrations ordered by version.
func (s *fileScanner) ScanMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewFileSystemError(dir, "scan directory", fmt.Errorf("migration directory does not exist"))
		}
		return nil, NewFileSystemError(dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		if err := s.ValidateFileName(entry.Name()); err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}

		migration, err := s.ParseMigrationFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		if existing, ok := seen[migration.Version]; ok {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s",
					ErrDuplicateVersion, migration.Version, existing, entry.Name()))
		}
		seen[migration.Version] = entry.Name()

		migrations = append(migrations, *migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})

	return migrations, nil
}

// ValidateFileName checks if migration file follows naming convention
func (s *fileScanner) ValidateFileName(filename string) error {
	matches := s.pattern.FindStringSubmatch(filename)
	if len(matches) != 3 {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: version '%s' in filename '%s' is not a valid number",
			ErrInvalidVersion, matches[1], filename)
	}
	return nil
}

// ParseMigrationFile reads and parses a single migration file
func (s *fileScanner) ParseMigrationFile(fsys fs.FS, filePath string) (*Migration, error) {
	filename := path.Base(filePath)
	if err := s.ValidateFileName(filename); err != nil {
		return nil, NewMigrationError("", filePath, "validate filename", err)
	}

	matches := s.pattern.FindStringSubmatch(filename)
	version := matches[1]

	content, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, NewFileSystemError(filePath, "read file", err)
	}
	sql := string(content)

	if strings.TrimSpace(sql) == "" {
		return nil, NewMigrationError(version, filePath, "validate content",
			fmt.Errorf("%w: migration file is empty", ErrInvalidMigrationFile))
	}

	description := descriptionFromContent(sql)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	if err := validateSQL(sql); err != nil {
		return nil, NewMigrationError(version, filePath, "validate SQL syntax", err)
	}

	return &Migration{
		Version:     version,
		Description: description,
		SQL:         sql,
		FilePath:    filePath,
		Checksum:    fmt.Sprintf("%x", sha256.Sum256(content)),
	}, nil
}

func validateSQL(sql string) error {
	clean := stripComments(sql)
	if strings.TrimSpace(clean) == "" {
		return fmt.Errorf("%w: no SQL statements found after removing comments", ErrInvalidMigrationFile)
	}

	depth := 0
	var quote rune
	for _, char := range clean {
		if quote != 0 {
			if char == quote {
				quote = 0
			}
			continue
		}
		switch char {
		case '\'', '"':
			quote = char
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched closing parenthesis", ErrInvalidMigrationFile)
			}
		}
	}
	if quote != 0 {
		return fmt.Errorf("%w: unterminated string literal", ErrInvalidMigrationFile)
	}
	if depth != 0 {
		return fmt.Errorf("%w: unmatched opening parenthesis", ErrInvalidMigrationFile)
	}
	return nil
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx != -1 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

// descriptionFromContent returns the "-- Description:" header of a migration file.
func descriptionFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			if description := strings.TrimSpace(rest); description != "" {
				return description
			}
		}
	}
	return ""
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}
