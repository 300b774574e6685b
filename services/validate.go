package services

import "github.com/Prot0type/portfolio-website/utils"

// Validate runs struct validation on payload and reports failures as a validation
// DomainError whose details map JSON field names to messages
func Validate(payload interface{}) error {
	if err := utils.ValidateStruct(payload); err != nil {
		domainErr := NewDomainError(ErrorTypeValidation, "validation failed", err)
		for field, message := range utils.GetValidationFields(err) {
			domainErr.WithDetail(field, message)
		}
		return domainErr
	}
	return nil
}
