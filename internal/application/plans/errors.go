package plans

import "errors"

var (
	// ErrPlanNotFound: no plan with that id and type.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrUnauthorized: the caller does not own the plan.
	ErrUnauthorized = errors.New("plan not owned by caller")
	// ErrInvalidPlanType: plan type is neither FIXED nor FLEXIBLE.
	ErrInvalidPlanType = errors.New("invalid plan type")
	// ErrPlanCompleted: no further installment may mutate a terminal plan.
	ErrPlanCompleted = errors.New("plan already completed")
	// ErrNotMature: conversion/settlement requires COMPLETED status.
	ErrNotMature = errors.New("plan is not mature")
	// ErrDuplicatePlan: the user already has an active fixed plan on this
	// template.
	ErrDuplicatePlan = errors.New("active plan already exists for this template")
	// ErrConcurrentUpdate: another posting changed the plan between read and
	// the guarded update; the unit rolled back, caller may retry.
	ErrConcurrentUpdate = errors.New("plan changed concurrently, retry")
)
