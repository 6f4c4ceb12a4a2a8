package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// mergeFlagKeys maps each merge override flag onto its configuration key.
var mergeFlagKeys = []struct {
	flag string
	key  string
}{
	{"left-flag", "merge.left_flag"},
	{"right-flag", "merge.right_flag"},
	{"hash-length", "merge.hash_length"},
	{"new-path", "merge.new_path"},
	{"root", "merge.root_path"},
	{"url-func", "merge.url_func"},
	{"algorithm", "merge.algorithm"},
}

// addMergeFlags registers per-invocation overrides of the merge section.
// Zero values mean "use the configured or built-in value".
func addMergeFlags(fs *pflag.FlagSet) {
	fs.String("left-flag", "", `opening delimiter of merge markers (default "<!--min[")`)
	fs.String("right-flag", "", `closing delimiter of merge markers (default "]-->")`)
	fs.Int("hash-length", 0, "number of digest characters embedded in stamped URLs (default 8)")
	fs.String("new-path", "", `URL template with {$base}, {$ext} and {$stamp} (default "renderUrl('{$base}-{$stamp}{$ext}')")`)
	fs.StringP("root", "r", "", `directory asset paths resolve against (default ".")`)
	fs.String("url-func", "", `name of the URL helper wrapping asset paths (default "renderUrl")`)
	fs.String("algorithm", "", "digest algorithm: md5, sha256 or crc32 (default md5)")
}

// bindMergeFlags binds the flags registered by addMergeFlags into v.
func bindMergeFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, m := range mergeFlagKeys {
		flag := fs.Lookup(m.flag)
		if flag == nil {
			return fmt.Errorf("flag --%s is not registered", m.flag)
		}
		if err := v.BindPFlag(m.key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", m.flag, err)
		}
	}

	return nil
}

// buildFlagKeys maps command-local build flags onto configuration keys.
var buildFlagKeys = map[string]string{
	"output": "build.output_dir",
	"jobs":   "build.concurrency",
}

// bindBuildFlags binds the build flags a command registered. Each command
// binds its own flags when it runs since viper keeps one flag per key.
func bindBuildFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range buildFlagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}

	return nil
}
