package domain

import "errors"

var ErrInvalidWindow = errors.New("khoảng thời gian không hợp lệ")
var ErrInvalidState = errors.New("chuyển trạng thái đặt chỗ không hợp lệ")
