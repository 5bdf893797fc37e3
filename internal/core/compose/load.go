package compose

// LoadAndMerge loads each file in paths independently (each with its own
// directory-scoped `.env`, per spec.md §4.1's "each file is parsed
// independently") and merges the results into one ComposeFile. Only the
// merged document is validated (spec.md §4.1); callers should invoke
// Validate on the result.
func LoadAndMerge(paths []string, processEnv map[string]string, opts Options) (*ComposeFile, []string, error) {
	const op = "compose.LoadAndMerge"
	if len(paths) == 0 {
		return nil, nil, errInvalid(op, "no compose files specified")
	}

	var files []*ComposeFile
	var warnings []string
	for _, path := range paths {
		cf, _, fileWarnings, err := LoadComposeFile(path, processEnv, opts)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, cf)
		warnings = append(warnings, fileWarnings...)
	}

	merged, err := Merge(files)
	if err != nil {
		return nil, nil, err
	}

	validateWarnings, err := Validate(merged)
	warnings = append(warnings, validateWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	return merged, warnings, nil
}
