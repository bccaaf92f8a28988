package engine

import "errors"

var (
	// ErrRootDirRequired is returned when the kernel has no root directory.
	ErrRootDirRequired = errors.New("kernel root dir is required")

	// ErrInvalidOption is returned when reading or setting an unknown option.
	ErrInvalidOption = errors.New("invalid option name")

	// ErrForbiddenKey is returned when render parameters use a reserved key.
	ErrForbiddenKey = errors.New("forbidden parameter key")

	// ErrInvalidTemplateName is returned for malformed Bundle:dir:file names.
	ErrInvalidTemplateName = errors.New("invalid template name")

	// ErrTemplateNotFound is returned when a template file does not exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrCacheDisabled is returned when warming the cache while caching is off.
	ErrCacheDisabled = errors.New("template cache is disabled")
)

// OptionError reports an unknown option name.
type OptionError struct {
	Name string
}

func (e *OptionError) Error() string {
	return e.Name + " is not a valid option name."
}

func (e *OptionError) Unwrap() error {
	return ErrInvalidOption
}

// ForbiddenKeyError reports a reserved key passed as a render parameter.
type ForbiddenKeyError struct {
	Key string
}

func (e *ForbiddenKeyError) Error() string {
	return `The "` + e.Key + `" key is forbidden.`
}

func (e *ForbiddenKeyError) Unwrap() error {
	return ErrForbiddenKey
}
