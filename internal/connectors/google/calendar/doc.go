// Package calendar implements the Google Calendar client used by the sync
// engine: event listing with server-timestamp tracking, push-notification
// channels and secondary calendar management.
package calendar
