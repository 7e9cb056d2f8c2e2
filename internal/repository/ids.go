package repository

import "codetracker/pkg/utils"

func newRecordID() string {
	return utils.GenerateStatsID()
}

func newUserID() string {
	return utils.GenerateUserID()
}
