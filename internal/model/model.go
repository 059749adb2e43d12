// Package model contains the records the background jobs read and write.
// Models carry JSON tags only; persistence mapping lives in the repositories.
package model
