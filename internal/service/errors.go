package service

import (
	"edu_network_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// lookupErr 将记录不存在映射为领域 NotFound，其他持久层错误视为存储不可用
func lookupErr(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return util.Storage(err)
}

// classify 领域错误原样返回，其余视为存储错误
func classify(err error) error {
	switch {
	case errors.Is(err, util.ErrNotFound),
		errors.Is(err, util.ErrValidationFailed),
		errors.Is(err, util.ErrInvalidTransition),
		errors.Is(err, util.ErrPermissionDenied),
		errors.Is(err, util.ErrStorageUnavailable):
		return err
	}
	return util.Storage(err)
}
