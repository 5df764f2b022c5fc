package util

import (
	"errors"
	"fmt"
)

// 错误分类：调用方用 errors.Is 判断类别
var (
	ErrNotFound           = errors.New("not found")
	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPermissionDenied   = errors.New("permission denied")
)

var (
	ErrContentNotFound     = fmt.Errorf("content %w", ErrNotFound)
	ErrVersionNotFound     = fmt.Errorf("content version %w", ErrNotFound)
	ErrNodeNotFound        = fmt.Errorf("node %w", ErrNotFound)
	ErrLocalContentMissing = fmt.Errorf("local content %w", ErrNotFound)
	ErrJobNotFound         = fmt.Errorf("distribution job %w", ErrNotFound)
	ErrTranslationNotFound = fmt.Errorf("translation request %w", ErrNotFound)

	ErrInvalidChangeType       = fmt.Errorf("%w: invalid change type", ErrValidationFailed)
	ErrSchemaValidationFailed  = fmt.Errorf("%w: payload does not match content schema", ErrValidationFailed)
	ErrInvalidLocalizationType = fmt.Errorf("%w: invalid localization type", ErrValidationFailed)
	ErrInvalidContentType      = fmt.Errorf("%w: invalid content type", ErrValidationFailed)
	ErrInvalidTier             = fmt.Errorf("%w: invalid access tier", ErrValidationFailed)
	ErrInvalidMode             = fmt.Errorf("%w: invalid mode", ErrValidationFailed)
	ErrEmptyTranslation        = fmt.Errorf("%w: translated text is empty", ErrValidationFailed)
	ErrNoCurrentVersion        = fmt.Errorf("%w: content has no current stable version", ErrValidationFailed)
	ErrVersionRegression       = fmt.Errorf("%w: version is older than current", ErrValidationFailed)
	ErrSlugTaken               = fmt.Errorf("%w: node slug already registered", ErrValidationFailed)
	ErrNodeNotActive           = errors.New("node is not active")
)

// Storage 将持久层错误包装为 ErrStorageUnavailable，保留原始错误信息
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
