package system

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// PHPPath is the default PHP CLI binary.
const PHPPath = "/usr/bin/php"

// PHPModules returns the modules compiled into or loaded by the given PHP
// binary, as listed by "php -m". Section headers such as "[PHP Modules]"
// and blank lines are dropped.
func PHPModules(ctx context.Context, runner CommandRunner, executable string) ([]string, error) {
	if executable == "" {
		executable = PHPPath
	}

	output, err := runner.Run(ctx, nil, executable, "-m")
	if err != nil {
		return nil, fmt.Errorf("php -m: %w", err)
	}

	var modules []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		modules = append(modules, line)
	}
	return modules, nil
}

// HasPHPModule reports whether module is loaded by the given PHP binary.
func HasPHPModule(ctx context.Context, runner CommandRunner, executable, module string) (bool, error) {
	modules, err := PHPModules(ctx, runner, executable)
	if err != nil {
		return false, err
	}
	for _, m := range modules {
		if m == module {
			return true, nil
		}
	}
	return false, nil
}
